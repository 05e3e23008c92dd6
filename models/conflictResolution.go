package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/utils"
	"gorm.io/gorm"
)

// ConflictResolution is the audit trail behind a conflict's aggregate
// counters: one immutable row per settlement action.
type ConflictResolution struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ConflictId    int             `gorm:"index;not null" json:"conflict_id"`
	Conflict      CrateConflict   `gorm:"foreignKey:ConflictId" json:"conflict"`
	Type          ResolutionType  `gorm:"type:varchar(20);not null" json:"type"`
	Quantity      int             `gorm:"not null;default:0" json:"quantity"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaymentMode   PaymentMode     `gorm:"type:varchar(30);default:null" json:"payment_mode"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     int             `gorm:"not null" json:"created_by"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeUpdate rejects every update; resolutions are append-only.
func (r *ConflictResolution) BeforeUpdate(tx *gorm.DB) error {
	_ = tx
	return errors.New("conflict resolutions are append-only")
}

// appendResolution fills audit fields from the request context and writes
// the row inside the caller's transaction.
func appendResolution(ctx context.Context, tx *gorm.DB, resolution *ConflictResolution) error {
	if resolution.CorrelationId == "" {
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
			resolution.CorrelationId = cid
		} else {
			resolution.CorrelationId = uuid.NewString()
		}
	}
	if resolution.CreatedBy == 0 {
		if userId, ok := utils.GetUserIdFromContext(ctx); ok {
			resolution.CreatedBy = userId
		}
	}
	return tx.Create(resolution).Error
}

// ResolutionsByConflict lists a conflict's settlement actions oldest-first.
func ResolutionsByConflict(ctx context.Context, conflictId int) ([]*ConflictResolution, error) {
	db := config.GetDB()
	var resolutions []*ConflictResolution
	if err := db.WithContext(ctx).
		Where("conflict_id = ?", conflictId).
		Order("id ASC").
		Find(&resolutions).Error; err != nil {
		return nil, err
	}
	return resolutions, nil
}
