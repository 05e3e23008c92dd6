package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/utils"
	"gorm.io/gorm"
)

// CrateMovement is one row of the append-only ledger. Quantity is the
// signed delta applied to the balance; BalanceAfter snapshots the account
// balance right after this row's effect, so the whole table chains into a
// verifiable audit trail.
type CrateMovement struct {
	ID            int          `gorm:"primary_key" json:"id"`
	Type          MovementType `gorm:"type:varchar(30);not null;index" json:"type"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	BalanceAfter  int          `gorm:"not null" json:"balance_after"`
	TourId        *int         `gorm:"index" json:"tour_id"`
	ConflictId    *int         `gorm:"index" json:"conflict_id"`
	Notes         string       `gorm:"type:text" json:"notes"`
	CreatedBy     int          `gorm:"not null" json:"created_by"`
	CorrelationId string       `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave enforces internal invariants for the ledger:
// - confirmed-loss rows never carry a quantity (stock already reflects the
//   loss since departure; decrementing again would double-count it)
// - departures are always negative
func (m *CrateMovement) BeforeSave(tx *gorm.DB) error {
	_ = tx // signature required by gorm
	if m == nil {
		return nil
	}
	if m.Type == MovementTypeConflictLossConfirmed && m.Quantity != 0 {
		return errors.New("confirmed loss movements must have zero quantity")
	}
	if m.Type == MovementTypeDepart && m.Quantity >= 0 {
		return errors.New("departure movements must have negative quantity")
	}
	return nil
}

// BeforeUpdate rejects every update. Corrections are new ADJUSTMENT rows.
func (m *CrateMovement) BeforeUpdate(tx *gorm.DB) error {
	_ = tx
	return errors.New("crate movements are append-only")
}

// appendMovement fills in audit fields from the request context and writes
// the row inside the caller's transaction.
func appendMovement(ctx context.Context, tx *gorm.DB, movement *CrateMovement) error {
	if movement.CorrelationId == "" {
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
			movement.CorrelationId = cid
		} else {
			movement.CorrelationId = uuid.NewString()
		}
	}
	if movement.CreatedBy == 0 {
		if userId, ok := utils.GetUserIdFromContext(ctx); ok {
			movement.CreatedBy = userId
		}
	}
	return tx.Create(movement).Error
}

// RegisterDeparture debits the balance when a tour leaves with crates.
func RegisterDeparture(ctx context.Context, tourId int, quantity int) (*CrateMovement, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: departure quantity must be positive", ErrInvalidQuantity)
	}

	db := config.GetDB()
	var movement *CrateMovement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := lockStockAccount(tx)
		if err != nil {
			return err
		}

		var tour Tour
		if err := tx.First(&tour, tourId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}

		newBalance := account.StockCurrent - quantity
		if err := setStockCurrent(tx, account, newBalance); err != nil {
			return err
		}

		if err := tx.Model(&tour).Updates(map[string]interface{}{
			"CratesDeparted": tour.CratesDeparted + quantity,
			"Status":         TourStatusOngoing,
		}).Error; err != nil {
			return err
		}

		movement = &CrateMovement{
			Type:         MovementTypeDepart,
			Quantity:     -quantity,
			BalanceAfter: newBalance,
			TourId:       &tour.ID,
		}
		return appendMovement(ctx, tx, movement)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// TourReturnResult tells the tour workflow what the return event implies.
// Surplus and Loss are mutually exclusive; a positive Loss is the caller's
// cue to open a CrateConflict.
type TourReturnResult struct {
	Surplus int `json:"surplus"`
	Loss    int `json:"loss"`
}

// RegisterTourReturn credits the balance when a tour comes back.
//
// More returned than departed is a surplus: the full departed count comes
// back as a RETURN row and the excess as a separate SURPLUS row. Fewer
// returned is a possible shortage: only the returned count is credited and
// the shortfall is NOT debited again here, since it already left the balance
// at departure. Conflict settlement realizes it later.
func RegisterTourReturn(ctx context.Context, tourId int, quantityDeparted int, quantityReturned int) (*TourReturnResult, error) {
	if quantityDeparted < 0 || quantityReturned < 0 {
		return nil, fmt.Errorf("%w: return quantities cannot be negative", ErrInvalidQuantity)
	}

	db := config.GetDB()
	result := &TourReturnResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := lockStockAccount(tx)
		if err != nil {
			return err
		}

		var tour Tour
		if err := tx.First(&tour, tourId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}

		difference := quantityDeparted - quantityReturned
		if difference < 0 {
			// Surplus: credit the departed count, then the excess.
			result.Surplus = -difference

			newBalance := account.StockCurrent + quantityDeparted
			if err := setStockCurrent(tx, account, newBalance); err != nil {
				return err
			}
			if err := appendMovement(ctx, tx, &CrateMovement{
				Type:         MovementTypeReturn,
				Quantity:     quantityDeparted,
				BalanceAfter: newBalance,
				TourId:       &tour.ID,
			}); err != nil {
				return err
			}

			newBalance += result.Surplus
			if err := setStockCurrent(tx, account, newBalance); err != nil {
				return err
			}
			if err := appendMovement(ctx, tx, &CrateMovement{
				Type:         MovementTypeSurplus,
				Quantity:     result.Surplus,
				BalanceAfter: newBalance,
				TourId:       &tour.ID,
			}); err != nil {
				return err
			}
		} else {
			result.Loss = difference

			newBalance := account.StockCurrent + quantityReturned
			if err := setStockCurrent(tx, account, newBalance); err != nil {
				return err
			}
			if err := appendMovement(ctx, tx, &CrateMovement{
				Type:         MovementTypeReturn,
				Quantity:     quantityReturned,
				BalanceAfter: newBalance,
				TourId:       &tour.ID,
			}); err != nil {
				return err
			}
		}

		tourStatus := TourStatusCompleted
		if result.Loss > 0 {
			tourStatus = TourStatusConflict
		}
		return tx.Model(&tour).Updates(map[string]interface{}{
			"CratesReturned": tour.CratesReturned + quantityReturned,
			"Status":         tourStatus,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// registerConflictReturn credits recovered crates back into stock. Invoked
// only by the settlement engine inside its own transaction, after it has
// validated the quantity against the conflict's remaining balance; the
// ledger does not re-check, the conflict row is the source of truth there.
func registerConflictReturn(ctx context.Context, tx *gorm.DB, conflictId int, quantity int, notes string) (*CrateMovement, error) {
	account, err := lockStockAccount(tx)
	if err != nil {
		return nil, err
	}

	newBalance := account.StockCurrent + quantity
	if err := setStockCurrent(tx, account, newBalance); err != nil {
		return nil, err
	}

	movement := &CrateMovement{
		Type:         MovementTypeConflictReturn,
		Quantity:     quantity,
		BalanceAfter: newBalance,
		ConflictId:   &conflictId,
		Notes:        notes,
	}
	if err := appendMovement(ctx, tx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// registerConfirmedLoss writes the audit-only posting for a paid-off loss.
// Stock already reflects the missing crates since departure, so the row
// carries zero quantity.
func registerConfirmedLoss(ctx context.Context, tx *gorm.DB, conflictId int, cratesCovered int, amountPaid decimal.Decimal, notes string) (*CrateMovement, error) {
	account, err := lockStockAccount(tx)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("loss of %d crate(s) confirmed against payment of %s", cratesCovered, amountPaid.StringFixed(2))
	if !utils.IsBlank(notes) {
		note = note + "; " + notes
	}

	movement := &CrateMovement{
		Type:         MovementTypeConflictLossConfirmed,
		Quantity:     0,
		BalanceAfter: account.StockCurrent,
		ConflictId:   &conflictId,
		Notes:        note,
	}
	if err := appendMovement(ctx, tx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// PaginateMovements lists the ledger newest-first for back-office screens.
func PaginateMovements(ctx context.Context, limit int, offset int) ([]*CrateMovement, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = config.SearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	db := config.GetDB()
	var total int64
	if err := db.WithContext(ctx).Model(&CrateMovement{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var movements []*CrateMovement
	if err := db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// AllMovements returns the full ledger oldest-first, for export and audit.
func AllMovements(ctx context.Context) ([]*CrateMovement, error) {
	db := config.GetDB()
	var movements []*CrateMovement
	if err := db.WithContext(ctx).Order("id ASC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
