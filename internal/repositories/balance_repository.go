package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jetstore/internal/database"
	"jetstore/internal/models"
	"jetstore/internal/monitoring"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const balanceColumns = "user_id, balance_rub, balance_usdt, updated_at"

// BalanceRepository owns user_balances. Every mutation is one conditional statement,
// so concurrent callers never lose an increment and never drive a balance below zero.
type BalanceRepository struct {
	base
}

func NewBalanceRepository(store *database.Postgres) *BalanceRepository {
	return &BalanceRepository{base: newBase(store)}
}

// WithClock replaces the source of updated_at timestamps.
func (r *BalanceRepository) WithClock(now func() time.Time) *BalanceRepository {
	c := *r
	c.now = now
	return &c
}

// WithTx binds the repository to an open transaction.
func (r *BalanceRepository) WithTx(tx *sqlx.Tx) *BalanceRepository {
	c := *r
	c.q = tx
	return &c
}

func (r *BalanceRepository) Available() bool {
	return r.available()
}

// Get never fails on a missing row: it returns the zero balance with Exists=false.
// With the store disabled it returns the same default.
func (r *BalanceRepository) Get(ctx context.Context, userID string) (models.Balance, error) {
	if !r.available() {
		return models.ZeroBalance(userID), nil
	}

	ctx, done := r.withTimeout(ctx, "balance_get")
	defer done()

	var bal models.Balance
	err := sqlx.GetContext(
		ctx,
		r.q,
		&bal,
		"select "+balanceColumns+" from user_balances where user_id = $1",
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ZeroBalance(userID), nil
	}
	if err != nil {
		log.Error("Failed to get balance: ", err)
		return models.ZeroBalance(userID), classify("get balance", err)
	}

	bal.Exists = true
	return bal, nil
}

// Credit adds a positive amount, creating the row on first credit, and returns the
// balance after the update.
func (r *BalanceRepository) Credit(ctx context.Context, userID string, amount models.Money) (bal models.Balance, err error) {
	defer func() {
		monitoring.BalanceOperationsTotal.WithLabelValues("credit", string(amount.Currency), outcome(err)).Inc()
	}()

	amount = models.NewMoney(amount.Amount, amount.Currency)
	if err := amount.RequirePositive(); err != nil {
		return models.Balance{}, err
	}
	if !r.available() {
		return models.Balance{}, ErrStoreUnavailable
	}

	rub, usdt := decimal.Zero, decimal.Zero
	if amount.Currency == models.CurrencyUSDT {
		usdt = amount.Amount
	} else {
		rub = amount.Amount
	}

	ctx, done := r.withTimeout(ctx, "balance_credit")
	defer done()

	err = sqlx.GetContext(
		ctx,
		r.q,
		&bal,
		`insert into user_balances (user_id, balance_rub, balance_usdt, updated_at)
		values ($1, $2, $3, $4)
		on conflict (user_id) do update set
			balance_rub = user_balances.balance_rub + excluded.balance_rub,
			balance_usdt = user_balances.balance_usdt + excluded.balance_usdt,
			updated_at = excluded.updated_at
		returning `+balanceColumns,
		userID,
		rub,
		usdt,
		r.now(),
	)
	if err != nil {
		log.Error("Failed to credit balance: ", err)
		return models.Balance{}, classify("credit balance", err)
	}

	bal.Exists = true
	log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.String(),
		"balance": bal.Of(amount.Currency).String(),
	}).Info("Balance credited")
	return bal, nil
}

// Debit subtracts amount only when the current value covers it, in one statement.
// A missing row or a short balance yields ErrInsufficientFunds and changes nothing.
func (r *BalanceRepository) Debit(ctx context.Context, userID string, amount models.Money) (bal models.Balance, err error) {
	defer func() {
		monitoring.BalanceOperationsTotal.WithLabelValues("debit", string(amount.Currency), outcome(err)).Inc()
	}()

	amount = models.NewMoney(amount.Amount, amount.Currency)
	if err := amount.RequirePositive(); err != nil {
		return models.Balance{}, err
	}
	if !r.available() {
		return models.Balance{}, ErrStoreUnavailable
	}

	column := balanceColumn(amount.Currency)

	ctx, done := r.withTimeout(ctx, "balance_debit")
	defer done()

	err = sqlx.GetContext(
		ctx,
		r.q,
		&bal,
		fmt.Sprintf(
			`update user_balances set %[1]s = %[1]s - $2, updated_at = $3
			where user_id = $1 and %[1]s >= $2
			returning `+balanceColumns,
			column,
		),
		userID,
		amount.Amount,
		r.now(),
	)
	if errors.Is(err, sql.ErrNoRows) || isCheckViolation(err) {
		return models.Balance{}, ErrInsufficientFunds
	}
	if err != nil {
		log.Error("Failed to debit balance: ", err)
		return models.Balance{}, classify("debit balance", err)
	}

	bal.Exists = true
	log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.String(),
		"balance": bal.Of(amount.Currency).String(),
	}).Info("Balance debited")
	return bal, nil
}

func balanceColumn(c models.Currency) string {
	if c == models.CurrencyUSDT {
		return "balance_usdt"
	}
	return "balance_rub"
}
