package database

import (
	"context"
	"errors"
	"fmt"

	"stocks-trader/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrUsernameTaken    = fmt.Errorf("username taken")
	ErrInsufficientCash = fmt.Errorf("insufficient cash")
)

// AutoMigrate creates or updates the users and transactions tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
	)
}

// WithTx runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise, including on panic.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func CreateUser(db *gorm.DB, user *models.User) error {
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func FindUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return &user, nil
}

func FindUserByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// LockUser reads the user row with SELECT ... FOR UPDATE. Dialects without
// row locks (SQLite) drop the clause.
func LockUser(tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user %d: %w", id, err)
	}
	return &user, nil
}

// DebitCash subtracts amount from the user's cash only if the balance covers it.
func DebitCash(tx *gorm.DB, id uint, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND cash >= ?", id, amount).
		Update("cash", gorm.Expr("cash - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit cash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCash
	}
	return nil
}

func CreditCash(db *gorm.DB, id uint, amount decimal.Decimal) error {
	res := db.Model(&models.User{}).
		Where("id = ?", id).
		Update("cash", gorm.Expr("cash + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit cash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func UpdatePasswordHash(db *gorm.DB, id uint, hash string) error {
	res := db.Model(&models.User{}).Where("id = ?", id).Update("hash", hash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AppendTransaction inserts a ledger entry. Entries are never updated or deleted.
func AppendTransaction(tx *gorm.DB, entry *models.Transaction) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// SharesHeld sums the signed shares of one symbol.
func SharesHeld(db *gorm.DB, userID uint, symbol string) (int64, error) {
	var held int64
	err := db.Model(&models.Transaction{}).
		Select("CAST(COALESCE(SUM(shares), 0) AS BIGINT)").
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Row().Scan(&held)
	if err != nil {
		return 0, fmt.Errorf("sum shares: %w", err)
	}
	return held, nil
}

// Holdings groups the user's ledger by symbol and keeps positive totals, ordered by symbol.
func Holdings(db *gorm.DB, userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	err := db.Model(&models.Transaction{}).
		Select("symbol, CAST(SUM(shares) AS BIGINT) AS total_shares").
		Where("user_id = ?", userID).
		Group("symbol").
		Having("SUM(shares) > 0").
		Order("symbol").
		Scan(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}
	return holdings, nil
}

// History lists every ledger entry of the user, oldest first.
func History(db *gorm.DB, userID uint) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return entries, nil
}
