package services

import (
	"context"

	"jetstore/internal/models"

	"github.com/shopspring/decimal"
)

// AccrualStore is the part of the referral store the accrual engine needs.
type AccrualStore interface {
	Available() bool
	Find(ctx context.Context, userID string) (models.ReferralRecord, bool, error)
	AddAccrual(ctx context.Context, userID string, volumeDelta, earnedDelta decimal.Decimal) (bool, error)
}

// EnrollmentStore is the part of the referral store enrollment needs.
type EnrollmentStore interface {
	Available() bool
	Find(ctx context.Context, userID string) (models.ReferralRecord, bool, error)
	GetOrCreate(ctx context.Context, userID string) (models.ReferralRecord, error)
	SaveEnrollment(ctx context.Context, rec models.ReferralRecord) error
	AppendReferral(ctx context.Context, ancestorID string, level int, userID string) (bool, error)
}

type SnapshotStore interface {
	LoadAll(ctx context.Context) (map[string]models.ReferralRecord, error)
}

type BalanceStore interface {
	Available() bool
	Get(ctx context.Context, userID string) (models.Balance, error)
	Credit(ctx context.Context, userID string, amount models.Money) (models.Balance, error)
	Debit(ctx context.Context, userID string, amount models.Money) (models.Balance, error)
}
