package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCash is the first balance the numeric(20,4) cash column cannot hold.
var MaxCash = decimal.New(1, 16)

type User struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Username  string          `gorm:"uniqueIndex;not null" json:"username"`
	Hash      string          `gorm:"not null" json:"-"`
	Cash      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"cash"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
