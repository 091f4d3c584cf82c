package util

import (
	"errors"
	"testing"

	"jetstore/internal/models"
)

func TestReferralCode(t *testing.T) {
	for _, id := range []string{"1", "123456789", "user-42", "идентификатор"} {
		code := GenerateReferralCode(id)
		for _, r := range code {
			ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
			if !ok {
				t.Fatalf("code %q for %q has %q", code, id, r)
			}
		}
		got, err := DecodeReferralCode(code)
		if err != nil {
			t.Fatal(err)
		}
		if got != id {
			t.Errorf("decoded %q, want %q", got, id)
		}
	}
}

func TestDecodeReferralCode_Invalid(t *testing.T) {
	for _, code := range []string{"", "%%%", "a"} {
		if _, err := DecodeReferralCode(code); !errors.Is(err, ErrInvalidReferralCode) {
			t.Errorf("code %q: err = %v, want ErrInvalidReferralCode", code, err)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   models.Money
		want string
	}{
		{models.RUB("1234.5"), "1,234.50 RUB"},
		{models.RUB("0"), "0.00 RUB"},
		{models.USDT("12.345678"), "12.345678 USDT"},
		{models.USDT("123456789012.123456"), "123,456,789,012.123456 USDT"},
		{models.RUB("-1234567.89"), "-1,234,567.89 RUB"},
		{models.RUB("999.999"), "1,000.00 RUB"},
	}
	for _, c := range cases {
		if got := FormatMoney(c.in); got != c.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReferralsCount(t *testing.T) {
	cases := map[int]string{
		0:   "0 рефералов",
		1:   "1 реферал",
		3:   "3 реферала",
		5:   "5 рефералов",
		11:  "11 рефералов",
		12:  "12 рефералов",
		21:  "21 реферал",
		104: "104 реферала",
		111: "111 рефералов",
	}
	for n, want := range cases {
		if got := ReferralsCount(n); got != want {
			t.Errorf("ReferralsCount(%d) = %q, want %q", n, got, want)
		}
	}
}
