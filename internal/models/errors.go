package models

import "errors"

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidChain    = errors.New("invalid referral chain")
	ErrInvalidSchedule = errors.New("invalid commission schedule")
)
