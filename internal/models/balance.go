package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Balance is the spendable money of one user. A user without a stored row has a
// zero balance with Exists set to false; that is the documented default of every read.
type Balance struct {
	UserID    string          `db:"user_id" json:"user_id"`
	Rub       decimal.Decimal `db:"balance_rub" json:"balance_rub"`
	Usdt      decimal.Decimal `db:"balance_usdt" json:"balance_usdt"`
	UpdatedAt sql.NullTime    `db:"updated_at" json:"-"`
	Exists    bool            `db:"-" json:"exists"`
}

func ZeroBalance(userID string) Balance {
	return Balance{
		UserID: userID,
		Rub:    decimal.Zero,
		Usdt:   decimal.Zero,
	}
}

func (b Balance) Of(c Currency) Money {
	if c == CurrencyUSDT {
		return NewMoney(b.Usdt, c)
	}
	return NewMoney(b.Rub, CurrencyRUB)
}
