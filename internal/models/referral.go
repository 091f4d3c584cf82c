package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxReferralLevel is the depth of the ancestor chain kept for every user.
const MaxReferralLevel = 3

// ReferralRecord is the referral-graph node of one user. Parent1..Parent3 are the
// ancestor chain computed once at enrollment; an empty string means "no ancestor".
type ReferralRecord struct {
	UserID      string          `json:"user_id"`
	Parent1     string          `json:"parent1,omitempty"`
	Parent2     string          `json:"parent2,omitempty"`
	Parent3     string          `json:"parent3,omitempty"`
	ReferralsL1 []string        `json:"referrals_l1"`
	ReferralsL2 []string        `json:"referrals_l2"`
	ReferralsL3 []string        `json:"referrals_l3"`
	Earned      decimal.Decimal `json:"earned_rub"`
	Volume      decimal.Decimal `json:"volume_rub"`
	Username    string          `json:"username,omitempty"`
	FirstName   string          `json:"first_name,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Ancestor struct {
	Level  int
	UserID string
}

func NewReferralRecord(userID string) ReferralRecord {
	return ReferralRecord{
		UserID:      userID,
		ReferralsL1: []string{},
		ReferralsL2: []string{},
		ReferralsL3: []string{},
		Earned:      decimal.Zero,
		Volume:      decimal.Zero,
	}
}

func (r ReferralRecord) Parent(level int) string {
	switch level {
	case 1:
		return r.Parent1
	case 2:
		return r.Parent2
	case 3:
		return r.Parent3
	}
	return ""
}

func (r ReferralRecord) Referrals(level int) []string {
	switch level {
	case 1:
		return r.ReferralsL1
	case 2:
		return r.ReferralsL2
	case 3:
		return r.ReferralsL3
	}
	return nil
}

func (r ReferralRecord) HasParent() bool {
	return r.Parent1 != ""
}

// Ancestors lists the set parents in level order 1..3.
func (r ReferralRecord) Ancestors() []Ancestor {
	res := make([]Ancestor, 0, MaxReferralLevel)
	for level := 1; level <= MaxReferralLevel; level++ {
		if p := r.Parent(level); p != "" {
			res = append(res, Ancestor{Level: level, UserID: p})
		}
	}
	return res
}

func (r ReferralRecord) EarnedMoney() Money {
	return NewMoney(r.Earned, CurrencyRUB)
}

func (r ReferralRecord) VolumeMoney() Money {
	return NewMoney(r.Volume, CurrencyRUB)
}

// ValidateChain checks the graph invariants of the ancestor chain: no user is its own
// ancestor, no ancestor repeats, and a deeper level is never set without the shallower one.
func (r ReferralRecord) ValidateChain() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidChain)
	}
	seen := map[string]int{}
	for level := 1; level <= MaxReferralLevel; level++ {
		p := r.Parent(level)
		if p == "" {
			for deeper := level + 1; deeper <= MaxReferralLevel; deeper++ {
				if r.Parent(deeper) != "" {
					return fmt.Errorf("%w: user %s has parent%d without parent%d", ErrInvalidChain, r.UserID, deeper, level)
				}
			}
			break
		}
		if p == r.UserID {
			return fmt.Errorf("%w: user %s is its own level %d ancestor", ErrInvalidChain, r.UserID, level)
		}
		if prev, ok := seen[p]; ok {
			return fmt.Errorf("%w: user %s has %s at levels %d and %d", ErrInvalidChain, r.UserID, p, prev, level)
		}
		seen[p] = level
	}
	return nil
}
