package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyRUB  Currency = "rub"
	CurrencyUSDT Currency = "usdt"
)

// Places is the number of fractional digits stored for the currency.
func (c Currency) Places() int32 {
	switch c {
	case CurrencyUSDT:
		return 6
	default:
		return 2
	}
}

func (c Currency) Valid() bool {
	return c == CurrencyRUB || c == CurrencyUSDT
}

func (c Currency) String() string {
	return strings.ToUpper(string(c))
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

// Money is an exact decimal amount tagged with its currency. The amount is always
// rounded to the currency's precision.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func NewMoney(amount decimal.Decimal, c Currency) Money {
	return Money{
		Amount:   amount.Round(c.Places()),
		Currency: c,
	}
}

func Zero(c Currency) Money {
	return NewMoney(decimal.Zero, c)
}

func ParseMoney(s string, c Currency) (Money, error) {
	if !c.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, c)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewMoney(d, c), nil
}

// MustMoney is ParseMoney for literals.
func MustMoney(s string, c Currency) Money {
	m, err := ParseMoney(s, c)
	if err != nil {
		panic(err)
	}
	return m
}

func RUB(s string) Money  { return MustMoney(s, CurrencyRUB) }
func USDT(s string) Money { return MustMoney(s, CurrencyUSDT) }

func (m Money) Add(o Money) Money {
	m.mustMatch(o)
	return NewMoney(m.Amount.Add(o.Amount), m.Currency)
}

func (m Money) Sub(o Money) Money {
	m.mustMatch(o)
	return NewMoney(m.Amount.Sub(o.Amount), m.Currency)
}

// MulRate multiplies by a dimensionless rate and rounds to the currency precision.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return NewMoney(m.Amount.Mul(rate), m.Currency)
}

func (m Money) Cmp(o Money) int {
	m.mustMatch(o)
	return m.Amount.Cmp(o.Amount)
}

func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsZero() bool     { return m.Amount.IsZero() }

// RequirePositive is the guard for credit, debit and accrual arguments.
func (m Money) RequirePositive() error {
	if !m.Currency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, m.Currency)
	}
	if !m.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than 0", ErrInvalidAmount, m)
	}
	return nil
}

func (m Money) String() string {
	return m.Amount.StringFixed(m.Currency.Places()) + " " + m.Currency.String()
}

func (m Money) mustMatch(o Money) {
	if m.Currency != o.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, o.Currency))
	}
}
