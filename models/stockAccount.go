package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stockAccountID pins the singleton row. There is exactly one physical
// inventory, so the whole ledger converges on this one record.
const stockAccountID = 1

// StockAccount is the authoritative running balance of crates on hand.
// Every balance-affecting operation updates this row and appends a
// CrateMovement in the same transaction, holding the row lock for the
// duration.
type StockAccount struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	StockInitial       int       `gorm:"not null;default:0" json:"stock_initial"`
	StockCurrent       int       `gorm:"not null;default:0" json:"stock_current"`
	LastAlertReference int       `gorm:"not null;default:0" json:"last_alert_reference"`
	Initialized        *bool     `gorm:"not null;default:false" json:"initialized"`
	CreatedBy          int       `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// lockForUpdate adds a SELECT ... FOR UPDATE clause on drivers that support
// it. SQLite serializes writers on its own and rejects the syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" || tx.Dialector.Name() == "sqlite3" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockStockAccount loads the singleton row under a row lock. Callers must
// already be inside a transaction.
func lockStockAccount(tx *gorm.DB) (*StockAccount, error) {
	var account StockAccount
	err := lockForUpdate(tx).First(&account, stockAccountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	if account.Initialized == nil || !*account.Initialized {
		return nil, ErrNotInitialized
	}
	return &account, nil
}

// setStockCurrent persists a new balance on the locked account row.
func setStockCurrent(tx *gorm.DB, account *StockAccount, newBalance int) error {
	if err := tx.Model(account).Updates(map[string]interface{}{
		"StockCurrent": newBalance,
	}).Error; err != nil {
		return err
	}
	account.StockCurrent = newBalance
	return nil
}

// InitializeStockAccount records the reference crate count at setup time.
// A second call fails with ErrAlreadyInitialized; corrections afterwards go
// through AdjustStock so the audit trail stays intact.
func InitializeStockAccount(ctx context.Context, quantity int) (*StockAccount, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: initial quantity must be positive", ErrInvalidQuantity)
	}

	db := config.GetDB()
	var account *StockAccount
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing StockAccount
		err := lockForUpdate(tx).First(&existing, stockAccountID).Error
		if err == nil {
			return ErrAlreadyInitialized
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		userId, _ := utils.GetUserIdFromContext(ctx)
		account = &StockAccount{
			ID:                 stockAccountID,
			StockInitial:       quantity,
			StockCurrent:       quantity,
			LastAlertReference: quantity,
			Initialized:        utils.NewTrue(),
			CreatedBy:          userId,
		}
		if err := tx.Create(account).Error; err != nil {
			return err
		}

		return appendMovement(ctx, tx, &CrateMovement{
			Type:         MovementTypeInitialize,
			Quantity:     quantity,
			BalanceAfter: quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// AdjustStock is the manual-correction escape hatch: the only operation
// allowed to move the balance without a matching physical event. A
// non-empty reason is mandatory.
func AdjustStock(ctx context.Context, delta int, reason string) (*StockAccount, error) {
	if utils.IsBlank(reason) {
		return nil, fmt.Errorf("%w: adjustment reason is required", ErrValidation)
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta cannot be zero", ErrInvalidQuantity)
	}

	db := config.GetDB()
	var account *StockAccount
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = lockStockAccount(tx)
		if err != nil {
			return err
		}

		newBalance := account.StockCurrent + delta
		if err := setStockCurrent(tx, account, newBalance); err != nil {
			return err
		}

		return appendMovement(ctx, tx, &CrateMovement{
			Type:         MovementTypeAdjustment,
			Quantity:     delta,
			BalanceAfter: newBalance,
			Notes:        reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// PurchaseCrates adds newly bought crates. Both the balance and the initial
// reference grow, and the alert reference resets so drawdown is measured
// from the new baseline.
func PurchaseCrates(ctx context.Context, quantity int, notes string, idempotencyKey string) (*StockAccount, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: purchase quantity must be positive", ErrInvalidQuantity)
	}

	db := config.GetDB()
	var account *StockAccount
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimIdempotencyKey(tx, "stock-purchase", idempotencyKey); err != nil {
			return err
		}

		var err error
		account, err = lockStockAccount(tx)
		if err != nil {
			return err
		}

		newBalance := account.StockCurrent + quantity
		if err := tx.Model(account).Updates(map[string]interface{}{
			"StockCurrent":       newBalance,
			"StockInitial":       account.StockInitial + quantity,
			"LastAlertReference": newBalance,
		}).Error; err != nil {
			return err
		}
		account.StockCurrent = newBalance
		account.StockInitial += quantity
		account.LastAlertReference = newBalance

		return appendMovement(ctx, tx, &CrateMovement{
			Type:         MovementTypePurchase,
			Quantity:     quantity,
			BalanceAfter: newBalance,
			Notes:        notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ResetAlertReference acknowledges the current alert: the drawdown baseline
// snaps to the current balance. Pure acknowledgement, no movement row.
func ResetAlertReference(ctx context.Context) (*StockAccount, error) {
	db := config.GetDB()
	var account *StockAccount
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = lockStockAccount(tx)
		if err != nil {
			return err
		}
		if err := tx.Model(account).Updates(map[string]interface{}{
			"LastAlertReference": account.StockCurrent,
		}).Error; err != nil {
			return err
		}
		account.LastAlertReference = account.StockCurrent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetStockAccount returns the singleton row without locking it.
// (may return RecordNotFound before initialization)
func GetStockAccount(ctx context.Context) (*StockAccount, error) {
	db := config.GetDB()
	var account StockAccount
	err := db.WithContext(ctx).First(&account, stockAccountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
