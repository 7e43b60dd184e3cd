package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"stocks-trader/database"
	"stocks-trader/events"
	"stocks-trader/models"
	"stocks-trader/quotes"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Quote looks a symbol up. Every gateway failure is reported as an invalid symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fail(ErrValidation, "must provide symbol")
	}
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if !errors.Is(err, quotes.ErrNotFound) {
			s.log.Warn("quote lookup failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return nil, fail(ErrInvalidSymbol, "invalid symbol")
	}
	if !q.Price.IsPositive() {
		s.log.Warn("quote has no usable price", zap.String("symbol", q.Symbol), zap.String("price", q.Price.String()))
		return nil, fail(ErrInvalidSymbol, "invalid symbol")
	}
	return q, nil
}

func parseShares(input string) (int64, error) {
	shares, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || shares <= 0 {
		return 0, fail(ErrInvalidQuantity, "shares must be a positive integer")
	}
	return shares, nil
}

// Buy debits shares x price from the user's cash and records the purchase.
// The balance check, the debit and the ledger insert commit together.
func (s *Service) Buy(ctx context.Context, userID uint, symbol, sharesInput string) (*models.Transaction, error) {
	quote, err := s.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	shares, err := parseShares(sharesInput)
	if err != nil {
		return nil, err
	}
	total := quote.Price.Mul(decimal.NewFromInt(shares))

	entry := &models.Transaction{
		UserID:        userID,
		Symbol:        quote.Symbol,
		Shares:        shares,
		PricePerShare: quote.Price,
	}
	err = database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		user, err := database.LockUser(tx, userID)
		if err != nil {
			return err
		}
		if total.GreaterThan(user.Cash) {
			return fail(ErrInsufficientFunds, "not enough funds")
		}
		if err := database.DebitCash(tx, userID, total); err != nil {
			if errors.Is(err, database.ErrInsufficientCash) {
				return fail(ErrInsufficientFunds, "not enough funds")
			}
			return err
		}
		return database.AppendTransaction(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bought",
		zap.Uint("user_id", userID),
		zap.String("symbol", entry.Symbol),
		zap.Int64("shares", shares),
		zap.String("price", quote.Price.String()),
		zap.String("total", total.String()))
	s.publish(ctx, entry)
	return entry, nil
}

// Sell credits shares x price to the user's cash and records the sale as a
// negative share count. Selling more than the summed position is refused.
func (s *Service) Sell(ctx context.Context, userID uint, symbol, sharesInput string) (*models.Transaction, error) {
	quote, err := s.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	shares, err := parseShares(sharesInput)
	if err != nil {
		return nil, err
	}
	total := quote.Price.Mul(decimal.NewFromInt(shares))

	entry := &models.Transaction{
		UserID:        userID,
		Symbol:        quote.Symbol,
		Shares:        -shares,
		PricePerShare: quote.Price,
	}
	err = database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		user, err := database.LockUser(tx, userID)
		if err != nil {
			return err
		}
		held, err := database.SharesHeld(tx, userID, quote.Symbol)
		if err != nil {
			return err
		}
		if held <= 0 || shares > held {
			return fail(ErrInsufficientShares, "you can't sell less than 0 or more than you own")
		}
		if user.Cash.Add(total).GreaterThanOrEqual(models.MaxCash) {
			return fail(ErrValidation, "balance would exceed the maximum")
		}
		if err := database.CreditCash(tx, userID, total); err != nil {
			return err
		}
		return database.AppendTransaction(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sold",
		zap.Uint("user_id", userID),
		zap.String("symbol", entry.Symbol),
		zap.Int64("shares", shares),
		zap.String("price", quote.Price.String()),
		zap.String("total", total.String()))
	s.publish(ctx, entry)
	return entry, nil
}

// publish happens after commit; a failed publish never undoes the trade.
func (s *Service) publish(ctx context.Context, entry *models.Transaction) {
	if err := s.events.Publish(ctx, events.FromTransaction(*entry)); err != nil {
		s.log.Error("publish trade event failed", zap.Uint("transaction_id", entry.ID), zap.Error(err))
	}
}
