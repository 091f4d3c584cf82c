package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"jetstore/internal/models"
	"jetstore/internal/repositories"

	"github.com/shopspring/decimal"
)

// memReferrals mirrors the referral repository contract in memory.
type memReferrals struct {
	mu          sync.Mutex
	disabled    bool
	recs        map[string]models.ReferralRecord
	failAccrual map[string]error
	failAppend  map[string]error
	loads       int

	// beforeEnrollment runs inside SaveEnrollment before the row is written.
	beforeEnrollment func()
}

func newMemReferrals(recs ...models.ReferralRecord) *memReferrals {
	m := &memReferrals{
		recs:        map[string]models.ReferralRecord{},
		failAccrual: map[string]error{},
		failAppend:  map[string]error{},
	}
	for _, rec := range recs {
		m.recs[rec.UserID] = rec
	}
	return m
}

func (m *memReferrals) Available() bool { return !m.disabled }

func (m *memReferrals) get(userID string) models.ReferralRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRecord(m.recs[userID])
}

func (m *memReferrals) Find(_ context.Context, userID string) (models.ReferralRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[userID]
	return cloneRecord(rec), ok, nil
}

func (m *memReferrals) GetOrCreate(_ context.Context, userID string) (models.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[userID]
	if !ok {
		rec = models.NewReferralRecord(userID)
		m.recs[userID] = rec
	}
	return cloneRecord(rec), nil
}

func (m *memReferrals) SaveEnrollment(_ context.Context, rec models.ReferralRecord) error {
	if err := rec.ValidateChain(); err != nil {
		return err
	}
	if m.beforeEnrollment != nil {
		m.beforeEnrollment()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.recs[rec.UserID]
	if !ok {
		stored = models.NewReferralRecord(rec.UserID)
	}
	if !stored.HasParent() {
		stored.Parent1, stored.Parent2, stored.Parent3 = rec.Parent1, rec.Parent2, rec.Parent3
	}
	stored.Username = rec.Username
	stored.FirstName = rec.FirstName
	m.recs[rec.UserID] = stored
	return nil
}

func (m *memReferrals) AddAccrual(_ context.Context, userID string, volume, earned decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failAccrual[userID]; err != nil {
		return false, err
	}
	rec, ok := m.recs[userID]
	if !ok {
		return false, nil
	}
	rec.Volume = rec.Volume.Add(volume)
	rec.Earned = rec.Earned.Add(earned)
	m.recs[userID] = rec
	return true, nil
}

func (m *memReferrals) AppendReferral(_ context.Context, ancestorID string, level int, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failAppend[ancestorID]; err != nil {
		return false, err
	}
	rec, ok := m.recs[ancestorID]
	if !ok {
		return false, nil
	}
	switch level {
	case 1:
		if !slices.Contains(rec.ReferralsL1, userID) {
			rec.ReferralsL1 = append(rec.ReferralsL1, userID)
		}
	case 2:
		if !slices.Contains(rec.ReferralsL2, userID) {
			rec.ReferralsL2 = append(rec.ReferralsL2, userID)
		}
	case 3:
		if !slices.Contains(rec.ReferralsL3, userID) {
			rec.ReferralsL3 = append(rec.ReferralsL3, userID)
		}
	default:
		return false, fmt.Errorf("%w: level %d", repositories.ErrInvalidChain, level)
	}
	m.recs[ancestorID] = rec
	return true, nil
}

func (m *memReferrals) LoadAll(_ context.Context) (map[string]models.ReferralRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	res := make(map[string]models.ReferralRecord, len(m.recs))
	for id, rec := range m.recs {
		res[id] = cloneRecord(rec)
	}
	return res, nil
}

func cloneRecord(rec models.ReferralRecord) models.ReferralRecord {
	rec.ReferralsL1 = slices.Clone(rec.ReferralsL1)
	rec.ReferralsL2 = slices.Clone(rec.ReferralsL2)
	rec.ReferralsL3 = slices.Clone(rec.ReferralsL3)
	return rec
}

func record(userID string, parents ...string) models.ReferralRecord {
	rec := models.NewReferralRecord(userID)
	for i, p := range parents {
		switch i {
		case 0:
			rec.Parent1 = p
		case 1:
			rec.Parent2 = p
		case 2:
			rec.Parent3 = p
		}
	}
	return rec
}

// memBalances applies credits and debits under one lock, like the single-row statements.
type memBalances struct {
	mu       sync.Mutex
	disabled bool
	rows     map[string]models.Balance
}

func newMemBalances() *memBalances {
	return &memBalances{rows: map[string]models.Balance{}}
}

func (m *memBalances) Available() bool { return !m.disabled }

func (m *memBalances) Get(_ context.Context, userID string) (models.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bal, ok := m.rows[userID]; ok {
		return bal, nil
	}
	return models.ZeroBalance(userID), nil
}

func (m *memBalances) Credit(_ context.Context, userID string, amount models.Money) (models.Balance, error) {
	if err := amount.RequirePositive(); err != nil {
		return models.Balance{}, err
	}
	if m.disabled {
		return models.Balance{}, repositories.ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.rows[userID]
	if !ok {
		bal = models.ZeroBalance(userID)
	}
	bal.Exists = true
	if amount.Currency == models.CurrencyRUB {
		bal.Rub = bal.Rub.Add(amount.Amount)
	} else {
		bal.Usdt = bal.Usdt.Add(amount.Amount)
	}
	m.rows[userID] = bal
	return bal, nil
}

func (m *memBalances) Debit(_ context.Context, userID string, amount models.Money) (models.Balance, error) {
	if err := amount.RequirePositive(); err != nil {
		return models.Balance{}, err
	}
	if m.disabled {
		return models.Balance{}, repositories.ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.rows[userID]
	if !ok || bal.Of(amount.Currency).Cmp(amount) < 0 {
		return models.Balance{}, repositories.ErrInsufficientFunds
	}
	if amount.Currency == models.CurrencyRUB {
		bal.Rub = bal.Rub.Sub(amount.Amount)
	} else {
		bal.Usdt = bal.Usdt.Sub(amount.Amount)
	}
	m.rows[userID] = bal
	return bal, nil
}
