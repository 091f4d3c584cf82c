package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CommissionSchedule maps a referral level (1..3) to the share of the purchase
// credited to the ancestor at that level.
type CommissionSchedule map[int]decimal.Decimal

func DefaultCommissionSchedule() CommissionSchedule {
	return CommissionSchedule{
		1: decimal.RequireFromString("0.10"),
		2: decimal.RequireFromString("0.05"),
		3: decimal.RequireFromString("0.02"),
	}
}

// ParseCommissionSchedule reads comma separated rates, level 1 first: "0.10,0.05,0.02".
func ParseCommissionSchedule(s string) (CommissionSchedule, error) {
	parts := strings.Split(s, ",")
	if len(parts) == 0 || len(parts) > MaxReferralLevel {
		return nil, fmt.Errorf("%w: expected 1..%d rates, got %q", ErrInvalidSchedule, MaxReferralLevel, s)
	}
	res := make(CommissionSchedule, len(parts))
	for i, p := range parts {
		rate, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: level %d rate %q", ErrInvalidSchedule, i+1, p)
		}
		res[i+1] = rate
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s CommissionSchedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSchedule)
	}
	one := decimal.NewFromInt(1)
	for level, rate := range s {
		if level < 1 || level > MaxReferralLevel {
			return fmt.Errorf("%w: unknown level %d", ErrInvalidSchedule, level)
		}
		if rate.IsNegative() || rate.GreaterThan(one) {
			return fmt.Errorf("%w: level %d rate %s outside [0, 1]", ErrInvalidSchedule, level, rate)
		}
	}
	return nil
}

// Rate returns the level's rate; a level missing from the schedule earns nothing.
func (s CommissionSchedule) Rate(level int) decimal.Decimal {
	if rate, ok := s[level]; ok {
		return rate
	}
	return decimal.Zero
}
