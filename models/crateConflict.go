package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/utils"
	"gorm.io/gorm"
)

// paymentTolerance absorbs rounding on the monetary boundary checks.
// Applied to comparisons only, never to stored values.
var paymentTolerance = decimal.New(1, -2) // 0.01

// CrateConflict is a detected shortage: crates that departed on a tour and
// never came back. QuantityLost is fixed at detection time by the tour
// workflow; QuantityReturned and AmountPaid only ever grow as the driver
// settles in kind or in cash, until the loss is fully covered.
type CrateConflict struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TourId           int             `gorm:"index;not null" json:"tour_id"`
	QuantityLost     int             `gorm:"not null" json:"quantity_lost"`
	QuantityReturned int             `gorm:"not null;default:0" json:"quantity_returned"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	Status           ConflictStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedBy        int             `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	ResolvedAt       *time.Time      `json:"resolved_at"`
}

type NewCrateConflict struct {
	TourId       int `json:"tour_id" binding:"required"`
	QuantityLost int `json:"quantity_lost" binding:"required"`
}

// SettlementTerms carries the configured value of one crate. It is injected
// per call so a mid-settlement price change is an explicit decision of the
// caller, and so the settlement transaction never reads configuration.
type SettlementTerms struct {
	UnitValue decimal.Decimal `json:"unit_value"`
}

// ConflictSettlementState is a side-effect-free projection of how far a
// conflict has been settled. Used by the engine's own completion check and
// by reporting.
type ConflictSettlementState struct {
	RemainingCrates int             `json:"remaining_crates"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	ProgressPct     decimal.Decimal `json:"progress_pct"`
	IsResolved      bool            `json:"is_resolved"`
	UnitValue       decimal.Decimal `json:"unit_value"`
}

// SettlementState values the loss at terms.UnitValue and reports what is
// still outstanding. The conflict counts as resolved when every crate came
// back, or when the value of returns plus payments covers the value of the
// loss (mixed settlement is the common case).
func (conflict *CrateConflict) SettlementState(terms SettlementTerms) *ConflictSettlementState {
	unitValue := terms.UnitValue
	lost := decimal.NewFromInt(int64(conflict.QuantityLost))
	returned := decimal.NewFromInt(int64(conflict.QuantityReturned))

	totalValue := lost.Mul(unitValue)
	settledValue := returned.Mul(unitValue).Add(conflict.AmountPaid)
	remainingAmount := totalValue.Sub(settledValue)
	if remainingAmount.IsNegative() {
		remainingAmount = decimal.Zero
	}

	resolved := conflict.QuantityReturned >= conflict.QuantityLost ||
		totalValue.Sub(settledValue).LessThanOrEqual(paymentTolerance)

	progress := decimal.NewFromInt(100)
	if totalValue.IsPositive() {
		progress = settledValue.Div(totalValue).Mul(decimal.NewFromInt(100)).Round(2)
		if progress.GreaterThan(decimal.NewFromInt(100)) {
			progress = decimal.NewFromInt(100)
		}
	}

	return &ConflictSettlementState{
		RemainingCrates: conflict.QuantityLost - conflict.QuantityReturned,
		RemainingAmount: remainingAmount,
		ProgressPct:     progress,
		IsResolved:      resolved,
		UnitValue:       unitValue,
	}
}

// CreateCrateConflict opens a shortage reported by the tour workflow after
// a return event came up short. No ledger posting happens here: stock
// already reflects the missing crates since departure.
func CreateCrateConflict(ctx context.Context, input *NewCrateConflict) (*CrateConflict, error) {
	if input.QuantityLost <= 0 {
		return nil, fmt.Errorf("%w: lost quantity must be positive", ErrInvalidQuantity)
	}
	if _, err := FetchTour(ctx, input.TourId); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	conflict := CrateConflict{
		TourId:       input.TourId,
		QuantityLost: input.QuantityLost,
		AmountPaid:   decimal.Zero,
		Status:       ConflictStatusPending,
		CreatedBy:    userId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&conflict).Error; err != nil {
		return nil, err
	}
	return &conflict, nil
}

// lockConflict loads a conflict row under a row lock, inside tx.
func lockConflict(tx *gorm.DB, conflictId int) (*CrateConflict, error) {
	var conflict CrateConflict
	err := lockForUpdate(tx).First(&conflict, conflictId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}

// resolveIfSettled flips the conflict to RESOLVED when the settlement state
// says the loss is fully covered. Must run on the locked row after its
// accumulators were updated.
func resolveIfSettled(tx *gorm.DB, conflict *CrateConflict, terms SettlementTerms) error {
	state := conflict.SettlementState(terms)
	if !state.IsResolved {
		return nil
	}
	now := time.Now().UTC()
	if err := tx.Model(conflict).Updates(map[string]interface{}{
		"Status":     ConflictStatusResolved,
		"ResolvedAt": now,
	}).Error; err != nil {
		return err
	}
	conflict.Status = ConflictStatusResolved
	conflict.ResolvedAt = &now
	return nil
}

// RegisterCrateReturn settles part of a conflict with physically recovered
// crates. One transaction covers the conflict accumulators, the resolution
// record and the stock credit; a crash can never leave one without the
// others.
func RegisterCrateReturn(ctx context.Context, conflictId int, quantity int, notes string, terms SettlementTerms, idempotencyKey string) (*CrateConflict, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: returned quantity must be positive", ErrInvalidQuantity)
	}

	db := config.GetDB()
	var conflict *CrateConflict
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimIdempotencyKey(tx, "conflict-crate-return", idempotencyKey); err != nil {
			return err
		}

		var err error
		conflict, err = lockConflict(tx, conflictId)
		if err != nil {
			return err
		}
		if conflict.Status.IsTerminal() {
			return ErrAlreadyResolved
		}

		remaining := conflict.QuantityLost - conflict.QuantityReturned
		if quantity > remaining {
			return fmt.Errorf("%w: %d crate(s) outstanding, got %d", ErrExceedsRemaining, remaining, quantity)
		}

		if err := tx.Model(conflict).Updates(map[string]interface{}{
			"QuantityReturned": conflict.QuantityReturned + quantity,
		}).Error; err != nil {
			return err
		}
		conflict.QuantityReturned += quantity

		if err := appendResolution(ctx, tx, &ConflictResolution{
			ConflictId: conflict.ID,
			Type:       ResolutionTypeCrateReturn,
			Quantity:   quantity,
			Notes:      notes,
		}); err != nil {
			return err
		}

		if _, err := registerConflictReturn(ctx, tx, conflict.ID, quantity, notes); err != nil {
			return err
		}

		return resolveIfSettled(tx, conflict, terms)
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

// RegisterConflictPayment settles part of a conflict in money. The payment
// never moves stock; it only confirms, for audit, that the crates it covers
// are definitively lost.
func RegisterConflictPayment(ctx context.Context, conflictId int, amount decimal.Decimal, mode PaymentMode, notes string, terms SettlementTerms, idempotencyKey string) (*CrateConflict, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidQuantity)
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment mode %q", ErrValidation, string(mode))
	}

	db := config.GetDB()
	var conflict *CrateConflict
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimIdempotencyKey(tx, "conflict-payment", idempotencyKey); err != nil {
			return err
		}

		var err error
		conflict, err = lockConflict(tx, conflictId)
		if err != nil {
			return err
		}
		if conflict.Status.IsTerminal() {
			return ErrAlreadyResolved
		}

		remainingCrates := decimal.NewFromInt(int64(conflict.QuantityLost - conflict.QuantityReturned))
		remainingValue := remainingCrates.Mul(terms.UnitValue).Sub(conflict.AmountPaid)
		if amount.GreaterThan(remainingValue.Add(paymentTolerance)) {
			return fmt.Errorf("%w: %s outstanding, got %s", ErrExceedsRemaining, remainingValue.StringFixed(2), amount.StringFixed(2))
		}

		newAmountPaid := conflict.AmountPaid.Add(amount)
		if err := tx.Model(conflict).Updates(map[string]interface{}{
			"AmountPaid": newAmountPaid,
		}).Error; err != nil {
			return err
		}
		conflict.AmountPaid = newAmountPaid

		if err := appendResolution(ctx, tx, &ConflictResolution{
			ConflictId:  conflict.ID,
			Type:        ResolutionTypePayment,
			Amount:      amount,
			PaymentMode: mode,
			Notes:       notes,
		}); err != nil {
			return err
		}

		cratesCovered := 0
		if terms.UnitValue.IsPositive() {
			cratesCovered = int(amount.Div(terms.UnitValue).Floor().IntPart())
		}
		if _, err := registerConfirmedLoss(ctx, tx, conflict.ID, cratesCovered, amount, notes); err != nil {
			return err
		}

		return resolveIfSettled(tx, conflict, terms)
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

// GetConflictSettlementState reads a conflict and projects its settlement
// state, without side effects.
func GetConflictSettlementState(ctx context.Context, conflictId int, terms SettlementTerms) (*ConflictSettlementState, error) {
	conflict, err := FetchConflict(ctx, conflictId)
	if err != nil {
		return nil, err
	}
	return conflict.SettlementState(terms), nil
}

func FetchConflict(ctx context.Context, id int) (*CrateConflict, error) {
	db := config.GetDB()
	var conflict CrateConflict
	err := db.WithContext(ctx).First(&conflict, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}
