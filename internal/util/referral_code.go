package util

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidReferralCode = errors.New("invalid referral code")

// GenerateReferralCode encodes a user id for an invite link start parameter,
// which only allows A-Z, a-z, 0-9, _ and -.
func GenerateReferralCode(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

func DecodeReferralCode(code string) (string, error) {
	res, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(code))
	if err != nil {
		return "", errors.Join(ErrInvalidReferralCode, err)
	}
	if len(res) == 0 {
		return "", ErrInvalidReferralCode
	}
	return string(res), nil
}
