package services

import (
	"context"
	"fmt"

	"stocks-trader/database"
	"stocks-trader/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Holdings lists the symbols the user currently owns, ordered by symbol.
func (s *Service) Holdings(ctx context.Context, userID uint) ([]models.Holding, error) {
	return database.Holdings(s.conn(ctx), userID)
}

// History lists every ledger entry of the user, oldest first.
func (s *Service) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return database.History(s.conn(ctx), userID)
}

// Portfolio values every current holding at a fresh quote. A holding whose
// quote cannot be fetched is still listed but left out of the total.
func (s *Service) Portfolio(ctx context.Context, userID uint) (*models.Portfolio, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions := make([]models.Position, len(holdings))
	var g errgroup.Group
	g.SetLimit(s.opts.QuoteConcurrency)
	for i, h := range holdings {
		g.Go(func() error {
			positions[i] = s.value(ctx, h)
			return nil
		})
	}
	_ = g.Wait()

	total := user.Cash
	for _, p := range positions {
		if p.QuoteAvailable {
			total = total.Add(p.MarketValue)
		}
	}
	return &models.Portfolio{
		Positions: positions,
		Cash:      user.Cash,
		Total:     total,
	}, nil
}

func (s *Service) value(ctx context.Context, h models.Holding) models.Position {
	p := models.Position{
		Symbol:       h.Symbol,
		Name:         h.Symbol,
		TotalShares:  h.TotalShares,
		CurrentPrice: decimal.Zero,
		MarketValue:  decimal.Zero,
	}
	q, err := s.quotes.Lookup(ctx, h.Symbol)
	if err == nil && !q.Price.IsPositive() {
		err = fmt.Errorf("non-positive price %s", q.Price)
	}
	if err != nil {
		s.log.Warn("no quote for held symbol", zap.String("symbol", h.Symbol), zap.Error(err))
		return p
	}
	p.Name = q.Name
	p.CurrentPrice = q.Price
	p.MarketValue = q.Price.Mul(decimal.NewFromInt(h.TotalShares))
	p.QuoteAvailable = true
	return p
}
