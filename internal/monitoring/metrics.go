package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient_funds"
	OutcomeInvalid      = "invalid"
	OutcomeUnavailable  = "unavailable"
	OutcomeError        = "error"
)

var (
	BalanceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_balance_operations_total",
			Help: "Balance credit and debit attempts by outcome",
		},
		[]string{"operation", "currency", "outcome"},
	)

	ReferralAccrualsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_referral_accruals_total",
			Help: "Per-ancestor referral accrual outcomes",
		},
		[]string{"level", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_store_operation_seconds",
			Help:    "Latency of ledger store statements",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
