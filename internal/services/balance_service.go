package services

import (
	"context"
	"errors"

	"jetstore/internal/models"
	"jetstore/internal/repositories"

	"github.com/sirupsen/logrus"
)

// BalanceService is what the storefront calls for spendable funds: top-ups after a
// confirmed payment and charges for purchases.
type BalanceService struct {
	balances BalanceStore
}

func NewBalanceService(balances BalanceStore) *BalanceService {
	return &BalanceService{balances: balances}
}

// Authoritative reports whether balances come from the store. When false every
// balance reads as zero and no mutation is accepted.
func (s *BalanceService) Authoritative() bool {
	return s.balances.Available()
}

func (s *BalanceService) Balance(ctx context.Context, userID string) (models.Balance, error) {
	return s.balances.Get(ctx, userID)
}

func (s *BalanceService) TopUp(ctx context.Context, userID string, amount models.Money) (models.Balance, error) {
	bal, err := s.balances.Credit(ctx, userID, amount)
	if err != nil {
		return models.Balance{}, err
	}
	log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.String(),
	}).Info("Balance topped up")
	return bal, nil
}

// Charge debits the purchase price. ok is false when the balance did not cover it;
// err is reserved for store failures and invalid amounts.
func (s *BalanceService) Charge(ctx context.Context, userID string, amount models.Money) (bal models.Balance, ok bool, err error) {
	bal, err = s.balances.Debit(ctx, userID, amount)
	if errors.Is(err, repositories.ErrInsufficientFunds) {
		log.WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  amount.String(),
		}).Info("Charge declined, insufficient funds")
		return models.Balance{}, false, nil
	}
	if err != nil {
		return models.Balance{}, false, err
	}
	return bal, true, nil
}
