package services

import (
	"context"
	"errors"
	"fmt"

	"jetstore/internal/database"
	"jetstore/internal/models"
	"jetstore/internal/repositories"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrReferralCycle     = errors.New("referrer is the user or one of its descendants")
	ErrAlreadyEnrolled   = errors.New("user already has a referrer")
	ErrNothingToWithdraw = errors.New("no earned commission to withdraw")
)

type Profile struct {
	Username  string
	FirstName string
}

// ReferralService attaches new users to a referrer and keeps the ancestors'
// descendant lists in step with the stored chain.
type ReferralService struct {
	refs EnrollmentStore
}

func NewReferralService(refs EnrollmentStore) *ReferralService {
	return &ReferralService{refs: refs}
}

// Enroll sets the chain of userID to referrer, referrer's parent1 and referrer's
// parent2, then lists userID under each of them. An empty referrerID only records
// the user and its profile. A user that already has a chain keeps it; enrolling
// again under the same referrer completes any missing list entries.
// Only the chain and profile columns are written, so accruals and list appends
// landing on the user's own row at the same time are kept.
func (s *ReferralService) Enroll(ctx context.Context, userID, referrerID string, profile Profile) (models.ReferralRecord, error) {
	if userID == "" {
		return models.ReferralRecord{}, fmt.Errorf("%w: empty user id", repositories.ErrInvalidChain)
	}
	if referrerID == userID {
		return models.ReferralRecord{}, ErrReferralCycle
	}
	if !s.refs.Available() {
		return models.ReferralRecord{}, repositories.ErrStoreUnavailable
	}

	current, found, err := s.refs.Find(ctx, userID)
	if err != nil {
		return models.ReferralRecord{}, err
	}
	if found && current.HasParent() && referrerID != "" {
		if current.Parent1 != referrerID {
			return current, ErrAlreadyEnrolled
		}
		return s.listUnderAncestors(ctx, current)
	}

	rec := models.NewReferralRecord(userID)
	rec.Username = profile.Username
	rec.FirstName = profile.FirstName

	if referrerID == "" {
		if err := s.refs.SaveEnrollment(ctx, rec); err != nil {
			return models.ReferralRecord{}, err
		}
		return s.stored(ctx, userID)
	}

	referrer, found, err := s.refs.Find(ctx, referrerID)
	if err != nil {
		return models.ReferralRecord{}, err
	}
	if found && (referrer.Parent1 == userID || referrer.Parent2 == userID || referrer.Parent3 == userID) {
		return models.ReferralRecord{}, ErrReferralCycle
	}
	if !found {
		if referrer, err = s.refs.GetOrCreate(ctx, referrerID); err != nil {
			return models.ReferralRecord{}, err
		}
	}

	rec.Parent1 = referrer.UserID
	rec.Parent2 = referrer.Parent1
	rec.Parent3 = referrer.Parent2
	if err := s.refs.SaveEnrollment(ctx, rec); err != nil {
		return models.ReferralRecord{}, err
	}

	// The stored chain is the one that won if enrollments raced.
	stored, err := s.stored(ctx, userID)
	if err != nil {
		return models.ReferralRecord{}, err
	}
	if stored.Parent1 != referrerID {
		return stored, ErrAlreadyEnrolled
	}
	return s.listUnderAncestors(ctx, stored)
}

// listUnderAncestors appends rec's user to the lists of its stored ancestors.
// Appends are idempotent, so a retry after a failed append only fills the gaps.
func (s *ReferralService) listUnderAncestors(ctx context.Context, rec models.ReferralRecord) (models.ReferralRecord, error) {
	for _, anc := range rec.Ancestors() {
		if _, err := s.refs.AppendReferral(ctx, anc.UserID, anc.Level, rec.UserID); err != nil {
			return rec, fmt.Errorf("list %s under level %d ancestor %s: %w", rec.UserID, anc.Level, anc.UserID, err)
		}
	}

	log.WithFields(logrus.Fields{
		"user_id":  rec.UserID,
		"referrer": rec.Parent1,
		"depth":    len(rec.Ancestors()),
	}).Info("User enrolled under referrer")
	return rec, nil
}

func (s *ReferralService) stored(ctx context.Context, userID string) (models.ReferralRecord, error) {
	rec, found, err := s.refs.Find(ctx, userID)
	if err != nil {
		return models.ReferralRecord{}, err
	}
	if !found {
		return models.ReferralRecord{}, fmt.Errorf("referral %s missing after save", userID)
	}
	return rec, nil
}

// WithdrawService moves earned referral commission into the spendable rub balance.
type WithdrawService struct {
	store    *database.Postgres
	refs     *repositories.ReferralRepository
	balances *repositories.BalanceRepository
}

func NewWithdrawService(store *database.Postgres, refs *repositories.ReferralRepository, balances *repositories.BalanceRepository) *WithdrawService {
	return &WithdrawService{
		store:    store,
		refs:     refs,
		balances: balances,
	}
}

// WithdrawEarned zeroes earned and credits the same amount in rub, both or neither.
// The referral row stays locked until commit so concurrent withdrawals pay once.
func (s *WithdrawService) WithdrawEarned(ctx context.Context, userID string) (models.Money, error) {
	if !s.store.Available() {
		return models.Money{}, repositories.ErrStoreUnavailable
	}

	var paid models.Money
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		refs := s.refs.WithTx(tx)
		balances := s.balances.WithTx(tx)

		rec, found, err := refs.FindForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !found || !rec.Earned.IsPositive() {
			return ErrNothingToWithdraw
		}

		if _, err := refs.SetEarned(ctx, userID, decimal.Zero); err != nil {
			return err
		}
		paid = rec.EarnedMoney()
		_, err = balances.Credit(ctx, userID, paid)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNothingToWithdraw) {
			log.Error("Failed to withdraw earned commission: ", err)
		}
		return models.Money{}, err
	}

	log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  paid.String(),
	}).Info("Earned commission withdrawn to balance")
	return paid, nil
}
