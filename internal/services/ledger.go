package services

import (
	"context"

	"jetstore/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger bundles the services the storefront bot talks to.
type Ledger struct {
	Balances  *BalanceService
	Accruals  *AccrualService
	Referrals *ReferralService
	Withdraw  *WithdrawService
	Reports   *ReportService
	Schedule  models.CommissionSchedule
}

// PurchaseCompleted charges the buyer and, once the charge went through, accrues
// referral commission on the rub equivalent. ok is false when funds were insufficient.
func (l *Ledger) PurchaseCompleted(ctx context.Context, buyerID string, price models.Money, rubEquivalent decimal.Decimal) (report models.AccrualReport, ok bool, err error) {
	if _, ok, err = l.Balances.Charge(ctx, buyerID, price); err != nil || !ok {
		return models.AccrualReport{}, ok, err
	}
	report, err = l.Accruals.Accrue(ctx, models.NewPurchaseEvent(buyerID, rubEquivalent), l.Schedule)
	return report, true, err
}
