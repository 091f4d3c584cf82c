package repositories

import (
	"context"
	"errors"
	"time"

	"jetstore/internal/config"
	"jetstore/internal/database"
	"jetstore/internal/monitoring"

	"github.com/jmoiron/sqlx"
)

var log = config.InitLogger()

// base is shared by the ledger repositories. q is nil when the store is disabled;
// otherwise it is the pool or, after WithTx, an open transaction.
type base struct {
	q       sqlx.ExtContext
	timeout time.Duration
	now     func() time.Time
}

func newBase(store *database.Postgres) base {
	b := base{
		timeout: store.CommandTimeout(),
		now:     time.Now,
	}
	if store.Available() {
		b.q = store.Db
	}
	return b
}

func (b base) available() bool {
	return b.q != nil
}

// withTimeout bounds a single statement. The returned func also records latency.
func (b base) withTimeout(ctx context.Context, op string) (context.Context, func()) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	return ctx, func() {
		cancel()
		monitoring.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeOK
	case errors.Is(err, ErrInsufficientFunds):
		return monitoring.OutcomeInsufficient
	case errors.Is(err, ErrInvalidAmount):
		return monitoring.OutcomeInvalid
	case errors.Is(err, ErrStoreUnavailable):
		return monitoring.OutcomeUnavailable
	default:
		return monitoring.OutcomeError
	}
}
