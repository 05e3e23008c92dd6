package models_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transdispo/crates_backend/models"
)

var testTerms = models.SettlementTerms{UnitValue: decimal.NewFromInt(50)}

// seedConflict prepares a settled ledger with a tour that came back short
// and the conflict opened for the shortage. Returns the conflict.
func seedConflict(t *testing.T, ctx context.Context, initial, departed, returned int) *models.CrateConflict {
	t.Helper()

	_, err := models.InitializeStockAccount(ctx, initial)
	require.NoError(t, err)

	tour, err := models.CreateTour(ctx, &models.NewTour{DriverName: "K. Haddad"})
	require.NoError(t, err)
	_, err = models.RegisterDeparture(ctx, tour.ID, departed)
	require.NoError(t, err)
	result, err := models.RegisterTourReturn(ctx, tour.ID, departed, returned)
	require.NoError(t, err)
	require.Equal(t, departed-returned, result.Loss)

	conflict, err := models.CreateCrateConflict(ctx, &models.NewCrateConflict{
		TourId:       tour.ID,
		QuantityLost: result.Loss,
	})
	require.NoError(t, err)
	require.Equal(t, models.ConflictStatusPending, conflict.Status)
	return conflict
}

func TestConflict_MixedSettlementResolves(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	// 5 crates lost, valued at 50 each: 250 total.
	conflict := seedConflict(t, ctx, 1000, 50, 45)

	account, err := models.GetStockAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, 995, account.StockCurrent)

	// Driver brings back 3 crates.
	conflict, err = models.RegisterCrateReturn(ctx, conflict.ID, 3, "found at depot", testTerms, "")
	require.NoError(t, err)
	assert.Equal(t, 3, conflict.QuantityReturned)
	assert.Equal(t, models.ConflictStatusPending, conflict.Status)

	state := conflict.SettlementState(testTerms)
	assert.Equal(t, 2, state.RemainingCrates)
	assert.True(t, state.RemainingAmount.Equal(decimal.NewFromInt(100)), "remaining %s", state.RemainingAmount)
	assert.True(t, state.ProgressPct.Equal(decimal.NewFromInt(60)), "progress %s", state.ProgressPct)
	assert.False(t, state.IsResolved)

	// Returned crates go back on the shelf.
	account, err = models.GetStockAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 998, account.StockCurrent)

	// Remaining 2 crates paid in cash.
	conflict, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromInt(100), models.PaymentModeCash, "", testTerms, "")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStatusResolved, conflict.Status)
	require.NotNil(t, conflict.ResolvedAt)
	assert.True(t, conflict.AmountPaid.Equal(decimal.NewFromInt(100)))

	state = conflict.SettlementState(testTerms)
	assert.True(t, state.IsResolved)
	assert.Equal(t, 2, state.RemainingCrates)
	assert.True(t, state.RemainingAmount.IsZero(), "remaining %s", state.RemainingAmount)
	assert.True(t, state.ProgressPct.Equal(decimal.NewFromInt(100)), "progress %s", state.ProgressPct)

	// Payment confirms the loss but never moves stock.
	account, err = models.GetStockAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 998, account.StockCurrent)

	// The confirmed loss leaves a zero-quantity audit row.
	movements, err := models.AllMovements(ctx)
	require.NoError(t, err)
	last := movements[len(movements)-1]
	assert.Equal(t, models.MovementTypeConflictLossConfirmed, last.Type)
	assert.Equal(t, 0, last.Quantity)
	assert.Equal(t, 998, last.BalanceAfter)
	require.NotNil(t, last.ConflictId)
	assert.Equal(t, conflict.ID, *last.ConflictId)

	// A resolved conflict refuses further settlement.
	_, err = models.RegisterCrateReturn(ctx, conflict.ID, 1, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)
	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromInt(10), models.PaymentModeCash, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestConflict_FullCrateReturnResolves(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	conflict := seedConflict(t, ctx, 200, 20, 16)

	conflict, err := models.RegisterCrateReturn(ctx, conflict.ID, 4, "", testTerms, "")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStatusResolved, conflict.Status)
	require.NotNil(t, conflict.ResolvedAt)

	// All lost crates came back; balance returns to the pre-loss level.
	account, err := models.GetStockAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, account.StockCurrent)
}

func TestConflict_OverSettlementRejected(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	conflict := seedConflict(t, ctx, 100, 10, 7)

	_, err := models.RegisterCrateReturn(ctx, conflict.ID, 4, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrExceedsRemaining)

	// 3 crates at 50 each: 150 outstanding.
	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromFloat(150.02), models.PaymentModeCash, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrExceedsRemaining)

	// Within tolerance of the remaining value passes.
	conflict, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromFloat(150.00), models.PaymentModeSalaryDeduction, "payroll 09/2026", testTerms, "")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStatusResolved, conflict.Status)
}

func TestConflict_InputValidation(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	conflict := seedConflict(t, ctx, 100, 10, 7)

	_, err := models.RegisterCrateReturn(ctx, conflict.ID, 0, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
	_, err = models.RegisterCrateReturn(ctx, conflict.ID, -1, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.Zero, models.PaymentModeCash, "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromInt(50), models.PaymentMode("CHEQUE"), "", testTerms, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = models.CreateCrateConflict(ctx, &models.NewCrateConflict{TourId: conflict.TourId, QuantityLost: 0})
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
	_, err = models.CreateCrateConflict(ctx, &models.NewCrateConflict{TourId: 9999, QuantityLost: 2})
	assert.Error(t, err)
}

func TestConflict_SettlementIdempotencyKey(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	conflict := seedConflict(t, ctx, 100, 10, 4)

	_, err := models.RegisterCrateReturn(ctx, conflict.ID, 2, "", testTerms, "ret-1")
	require.NoError(t, err)
	_, err = models.RegisterCrateReturn(ctx, conflict.ID, 2, "", testTerms, "ret-1")
	assert.ErrorIs(t, err, models.ErrDuplicateOperation)

	conflict, err = models.FetchConflict(ctx, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, conflict.QuantityReturned, "replayed return must not double-apply")

	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromInt(50), models.PaymentModeCash, "", testTerms, "pay-1")
	require.NoError(t, err)
	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromInt(50), models.PaymentModeCash, "", testTerms, "pay-1")
	assert.ErrorIs(t, err, models.ErrDuplicateOperation)

	conflict, err = models.FetchConflict(ctx, conflict.ID)
	require.NoError(t, err)
	assert.True(t, conflict.AmountPaid.Equal(decimal.NewFromInt(50)), "replayed payment must not double-apply")
}

func TestConflict_ResolutionHistory(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	conflict := seedConflict(t, ctx, 100, 10, 6)

	_, err := models.RegisterCrateReturn(ctx, conflict.ID, 1, "first recovery", testTerms, "")
	require.NoError(t, err)
	_, err = models.RegisterConflictPayment(ctx, conflict.ID, decimal.NewFromInt(75), models.PaymentModeSalaryDeduction, "partial", testTerms, "")
	require.NoError(t, err)

	resolutions, err := models.ResolutionsByConflict(ctx, conflict.ID)
	require.NoError(t, err)
	require.Len(t, resolutions, 2)

	assert.Equal(t, models.ResolutionTypeCrateReturn, resolutions[0].Type)
	assert.Equal(t, 1, resolutions[0].Quantity)
	assert.Equal(t, "first recovery", resolutions[0].Notes)
	assert.Equal(t, 1, resolutions[0].CreatedBy)

	assert.Equal(t, models.ResolutionTypePayment, resolutions[1].Type)
	assert.True(t, resolutions[1].Amount.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, models.PaymentModeSalaryDeduction, resolutions[1].PaymentMode)
}

func TestConflict_SettlementStateMath(t *testing.T) {
	conflict := &models.CrateConflict{
		QuantityLost:     4,
		QuantityReturned: 1,
		AmountPaid:       decimal.NewFromInt(25),
	}

	state := conflict.SettlementState(testTerms)
	// Total 200; settled 50 (return) + 25 (cash) = 75.
	assert.Equal(t, 3, state.RemainingCrates)
	assert.True(t, state.RemainingAmount.Equal(decimal.NewFromInt(125)), "remaining %s", state.RemainingAmount)
	assert.True(t, state.ProgressPct.Equal(decimal.NewFromFloat(37.5)), "progress %s", state.ProgressPct)
	assert.False(t, state.IsResolved)

	// Within tolerance of full value counts as resolved.
	conflict.AmountPaid = decimal.NewFromFloat(149.995)
	state = conflict.SettlementState(testTerms)
	assert.True(t, state.IsResolved)

	// A zero-value loss has nothing to settle.
	zero := &models.CrateConflict{QuantityLost: 0, AmountPaid: decimal.Zero}
	state = zero.SettlementState(testTerms)
	assert.True(t, state.IsResolved)
	assert.True(t, state.ProgressPct.Equal(decimal.NewFromInt(100)))
}
