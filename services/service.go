// Package services holds the application logic: accounts, the trade executor
// and the portfolio aggregator. Handlers only translate HTTP to these calls.
package services

import (
	"context"

	"stocks-trader/events"
	"stocks-trader/quotes"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Options struct {
	StartingCash decimal.Decimal
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// QuoteConcurrency bounds parallel quote lookups per portfolio, default 4.
	QuoteConcurrency int
}

type Service struct {
	db     *gorm.DB
	quotes quotes.Gateway
	events events.Publisher
	log    *zap.Logger
	opts   Options
}

func New(db *gorm.DB, gw quotes.Gateway, pub events.Publisher, log *zap.Logger, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.QuoteConcurrency <= 0 {
		opts.QuoteConcurrency = 4
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{db: db, quotes: gw, events: pub, log: log, opts: opts}
}

func (s *Service) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
