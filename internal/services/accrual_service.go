package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"jetstore/internal/config"
	"jetstore/internal/models"
	"jetstore/internal/monitoring"
	"jetstore/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = config.InitLogger()

var (
	ErrPartialAccrual = errors.New("partial accrual failure")
	ErrInvalidEvent   = errors.New("invalid purchase event")
)

// PartialAccrualError lists the ancestors whose update failed. The other levels of
// the same purchase were applied; retry only these with AccrualService.Retry.
type PartialAccrualError struct {
	EventID uuid.UUID
	Failed  []models.AccrualOutcome
}

func (e *PartialAccrualError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, o := range e.Failed {
		parts = append(parts, fmt.Sprintf("level %d ancestor %s: %v", o.Level, o.AncestorID, o.Err))
	}
	return fmt.Sprintf("%v (event %s): %s", ErrPartialAccrual, e.EventID, strings.Join(parts, "; "))
}

func (e *PartialAccrualError) Unwrap() []error {
	errs := []error{ErrPartialAccrual}
	for _, o := range e.Failed {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// AccrualService turns a completed purchase into referral credit for the buyer's
// stored ancestor chain. It never touches spendable balances.
type AccrualService struct {
	refs AccrualStore
}

func NewAccrualService(refs AccrualStore) *AccrualService {
	return &AccrualService{refs: refs}
}

// Accrue credits every ancestor of the buyer with volume += amount and
// earned += round2(amount * rate). A buyer without a referral record is skipped
// without error. Each ancestor update is independent; failures are reported, not
// hidden, through *PartialAccrualError.
func (s *AccrualService) Accrue(ctx context.Context, event models.PurchaseEvent, schedule models.CommissionSchedule) (models.AccrualReport, error) {
	if event.BuyerID == "" {
		return models.AccrualReport{}, fmt.Errorf("%w: empty buyer id", ErrInvalidEvent)
	}
	amount := models.NewMoney(event.Amount, models.CurrencyRUB)
	if err := amount.RequirePositive(); err != nil {
		return models.AccrualReport{}, err
	}
	if err := schedule.Validate(); err != nil {
		return models.AccrualReport{}, err
	}
	if !s.refs.Available() {
		return models.AccrualReport{}, repositories.ErrStoreUnavailable
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	report := models.AccrualReport{
		EventID: event.EventID,
		BuyerID: event.BuyerID,
		Amount:  amount.Amount,
	}

	buyer, found, err := s.refs.Find(ctx, event.BuyerID)
	if err != nil {
		log.Error("Failed to load buyer referral record: ", err)
		return report, fmt.Errorf("load buyer %s: %w", event.BuyerID, err)
	}
	if !found {
		report.Skipped = true
		log.WithFields(logrus.Fields{
			"event_id": event.EventID,
			"buyer_id": event.BuyerID,
		}).Debug("Buyer is not enrolled, accrual skipped")
		return report, nil
	}

	for _, anc := range buyer.Ancestors() {
		outcome := models.AccrualOutcome{
			Level:      anc.Level,
			AncestorID: anc.UserID,
			Volume:     amount.Amount,
			Commission: amount.MulRate(schedule.Rate(anc.Level)).Amount,
		}
		s.apply(ctx, &outcome)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	s.logReport(report)
	return report, partialError(report)
}

// Retry re-applies only the failed outcomes of a report with the amounts it recorded.
func (s *AccrualService) Retry(ctx context.Context, report models.AccrualReport) (models.AccrualReport, error) {
	if report.Skipped || len(report.Failed()) == 0 {
		return report, nil
	}
	if !s.refs.Available() {
		return report, repositories.ErrStoreUnavailable
	}

	outcomes := make([]models.AccrualOutcome, len(report.Outcomes))
	copy(outcomes, report.Outcomes)
	for i := range outcomes {
		if outcomes[i].Status == models.AccrualFailed {
			outcomes[i].Err = nil
			s.apply(ctx, &outcomes[i])
		}
	}
	report.Outcomes = outcomes

	s.logReport(report)
	return report, partialError(report)
}

func (s *AccrualService) apply(ctx context.Context, o *models.AccrualOutcome) {
	applied, err := s.refs.AddAccrual(ctx, o.AncestorID, o.Volume, o.Commission)
	switch {
	case err != nil:
		o.Status = models.AccrualFailed
		o.Err = err
		log.WithFields(logrus.Fields{
			"level":       o.Level,
			"ancestor_id": o.AncestorID,
		}).Error("Failed to accrue referral commission: ", err)
	case applied:
		o.Status = models.AccrualApplied
	default:
		o.Status = models.AccrualMissing
		log.WithFields(logrus.Fields{
			"level":       o.Level,
			"ancestor_id": o.AncestorID,
		}).Warn("Ancestor has no referral record, accrual ignored")
	}
	monitoring.ReferralAccrualsTotal.WithLabelValues(strconv.Itoa(o.Level), string(o.Status)).Inc()
}

func (s *AccrualService) logReport(r models.AccrualReport) {
	log.WithFields(logrus.Fields{
		"event_id": r.EventID,
		"buyer_id": r.BuyerID,
		"amount":   r.Amount.StringFixed(2),
		"applied":  r.Count(models.AccrualApplied),
		"missing":  r.Count(models.AccrualMissing),
		"failed":   r.Count(models.AccrualFailed),
	}).Info("Referral accrual processed")
}

func partialError(r models.AccrualReport) error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &PartialAccrualError{EventID: r.EventID, Failed: failed}
}
