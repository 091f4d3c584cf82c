package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewMoneyRoundsToCurrencyPlaces(t *testing.T) {
	tests := []struct {
		in       string
		currency Currency
		want     string
	}{
		{"10.005", CurrencyRUB, "10.01"},
		{"10.004", CurrencyRUB, "10.00"},
		{"0.1234567", CurrencyUSDT, "0.123457"},
		{"1", CurrencyUSDT, "1.000000"},
	}

	for _, tt := range tests {
		m := MustMoney(tt.in, tt.currency)
		if got := m.Amount.StringFixed(tt.currency.Places()); got != tt.want {
			t.Errorf("MustMoney(%s, %s) = %s, want %s", tt.in, tt.currency, got, tt.want)
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	sum := Zero(CurrencyRUB)
	for i := 0; i < 1000; i++ {
		sum = sum.Add(RUB("0.10"))
	}
	if !sum.Equal(RUB("100.00")) {
		t.Fatalf("1000 x 0.10 = %s, want 100.00 RUB", sum)
	}

	if got := RUB("100.00").Sub(RUB("60.00")); !got.Equal(RUB("40.00")) {
		t.Fatalf("100 - 60 = %s", got)
	}

	if got := RUB("333.33").MulRate(decimal.RequireFromString("0.05")); !got.Equal(RUB("16.67")) {
		t.Fatalf("333.33 x 0.05 = %s, want 16.67", got)
	}
}

func TestMoneyComparison(t *testing.T) {
	if RUB("1.00").Cmp(RUB("2.00")) >= 0 {
		t.Fatal("1.00 must be less than 2.00")
	}
	if !RUB("1").Equal(RUB("1.00")) {
		t.Fatal("equality must be value based")
	}
	if RUB("1").Equal(USDT("1")) {
		t.Fatal("different currencies must not be equal")
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on currency mismatch")
		}
	}()
	RUB("1").Add(USDT("1"))
}

func TestRequirePositive(t *testing.T) {
	if err := RUB("0.01").RequirePositive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range []Money{RUB("0"), RUB("-5"), RUB("0.001")} {
		if err := m.RequirePositive(); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("RequirePositive(%s) = %v, want ErrInvalidAmount", m, err)
		}
	}
	if err := (Money{Amount: decimal.NewFromInt(1), Currency: "eur"}).RequirePositive(); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("unknown currency must be rejected, got %v", err)
	}
}

func TestParseMoneyAndCurrency(t *testing.T) {
	if _, err := ParseMoney("abc", CurrencyRUB); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("ParseMoney(abc) = %v", err)
	}
	c, err := ParseCurrency(" USDT ")
	if err != nil || c != CurrencyUSDT {
		t.Fatalf("ParseCurrency = %v, %v", c, err)
	}
	if _, err := ParseCurrency("btc"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("ParseCurrency(btc) = %v", err)
	}
	if s := USDT("2.5").String(); s != "2.500000 USDT" {
		t.Fatalf("String() = %q", s)
	}
}

func TestBalanceOf(t *testing.T) {
	b := ZeroBalance("42")
	b.Rub = decimal.RequireFromString("12.5")
	b.Usdt = decimal.RequireFromString("0.25")

	if got := b.Of(CurrencyRUB); !got.Equal(RUB("12.50")) {
		t.Fatalf("Of(rub) = %s", got)
	}
	if got := b.Of(CurrencyUSDT); !got.Equal(USDT("0.25")) {
		t.Fatalf("Of(usdt) = %s", got)
	}
}
