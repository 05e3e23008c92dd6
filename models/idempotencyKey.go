package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// IdempotencyKey provides durable, DB-backed idempotency for mutating
// operations that callers may retry after a timeout.
// Unique constraint: (operation, client_key).
//
// The claim row is created inside the mutation's transaction, so a rolled
// back mutation releases its key and a committed one keeps it forever.
type IdempotencyKey struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Operation string    `gorm:"size:100;not null;index:uniq_idem,unique" json:"operation"`
	ClientKey string    `gorm:"size:255;not null;index:uniq_idem,unique" json:"client_key"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// claimIdempotencyKey inserts the claim row, translating a unique-index
// violation into ErrDuplicateOperation. An empty key means the caller opted
// out of idempotency.
func claimIdempotencyKey(tx *gorm.DB, operation string, clientKey string) error {
	if clientKey == "" {
		return nil
	}
	err := tx.Create(&IdempotencyKey{Operation: operation, ClientKey: clientKey}).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateOperation
	}
	return err
}
