package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseEvent is the "purchase completed" notification. Amount is the rub
// equivalent used for commission purposes. EventID only correlates log lines.
type PurchaseEvent struct {
	EventID uuid.UUID       `json:"event_id"`
	BuyerID string          `json:"buyer_id"`
	Amount  decimal.Decimal `json:"amount"`
}

func NewPurchaseEvent(buyerID string, amount decimal.Decimal) PurchaseEvent {
	return PurchaseEvent{
		EventID: uuid.New(),
		BuyerID: buyerID,
		Amount:  amount,
	}
}

type AccrualStatus string

const (
	AccrualApplied AccrualStatus = "applied"
	AccrualMissing AccrualStatus = "missing" // ancestor has no referral row, nothing written
	AccrualFailed  AccrualStatus = "failed"
)

type AccrualOutcome struct {
	Level      int             `json:"level"`
	AncestorID string          `json:"ancestor_id"`
	Volume     decimal.Decimal `json:"volume"`
	Commission decimal.Decimal `json:"commission"`
	Status     AccrualStatus   `json:"status"`
	Err        error           `json:"-"`
}

type AccrualReport struct {
	EventID  uuid.UUID        `json:"event_id"`
	BuyerID  string           `json:"buyer_id"`
	Amount   decimal.Decimal  `json:"amount"`
	Skipped  bool             `json:"skipped"`
	Outcomes []AccrualOutcome `json:"outcomes"`
}

func (r AccrualReport) Failed() []AccrualOutcome {
	var res []AccrualOutcome
	for _, o := range r.Outcomes {
		if o.Status == AccrualFailed {
			res = append(res, o)
		}
	}
	return res
}

func (r AccrualReport) Count(status AccrualStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
