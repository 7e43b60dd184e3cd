package services

import (
	"context"
	"strings"

	"stocks-trader/database"
	"stocks-trader/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddFunds credits a positive amount to the user's cash. Deposits leave no
// ledger entry; the ledger only records trades. The resulting balance must
// stay below models.MaxCash.
func (s *Service) AddFunds(ctx context.Context, userID uint, amountInput string) (*models.User, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountInput))
	if err != nil {
		return nil, fail(ErrValidation, "amount must be a positive real number")
	}
	amount = amount.Round(4)
	if !amount.IsPositive() {
		return nil, fail(ErrValidation, "amount must be a positive real number")
	}
	if amount.GreaterThanOrEqual(models.MaxCash) {
		return nil, fail(ErrValidation, "balance would exceed the maximum")
	}

	var user *models.User
	err = database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := database.LockUser(tx, userID)
		if err != nil {
			return err
		}
		if locked.Cash.Add(amount).GreaterThanOrEqual(models.MaxCash) {
			return fail(ErrValidation, "balance would exceed the maximum")
		}
		if err := database.CreditCash(tx, userID, amount); err != nil {
			return err
		}
		user, err = database.FindUserByID(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("funds added", zap.Uint("user_id", userID), zap.String("amount", amount.String()))
	return user, nil
}
