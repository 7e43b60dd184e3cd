package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry. Buys carry positive shares, sells negative
// shares, so a position is the plain sum of the column.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"index;not null" json:"user_id"`
	Symbol        string          `gorm:"index;not null" json:"symbol"`
	Shares        int64           `gorm:"not null" json:"shares"`
	PricePerShare decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price_per_share"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// IsSell reports whether the entry removed shares from the position.
func (t Transaction) IsSell() bool { return t.Shares < 0 }

// Holding is a symbol with the summed shares of a user's ledger.
type Holding struct {
	Symbol      string `json:"symbol"`
	TotalShares int64  `json:"total_shares"`
}

// Position is a holding valued at the current quote.
type Position struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	TotalShares    int64           `json:"total_shares"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	QuoteAvailable bool            `json:"quote_available"`
}

// Portfolio is derived per request and never persisted.
type Portfolio struct {
	Positions []Position      `json:"positions"`
	Cash      decimal.Decimal `json:"cash"`
	Total     decimal.Decimal `json:"total"`
}
