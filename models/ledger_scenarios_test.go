package models_test

import (
	"errors"
	"testing"

	"github.com/transdispo/crates_backend/models"
)

// assertLedgerConsistent replays the whole movement table and checks the
// audit invariants: balance_after chains from zero by each row's quantity,
// the account balance equals the last snapshot, and stock_initial equals
// the INITIALIZE+PURCHASE total.
func assertLedgerConsistent(t *testing.T) {
	t.Helper()

	account, err := models.GetStockAccount(testContext())
	if err != nil {
		t.Fatalf("GetStockAccount: %v", err)
	}
	movements, err := models.AllMovements(testContext())
	if err != nil {
		t.Fatalf("AllMovements: %v", err)
	}

	running := 0
	baseline := 0
	for _, m := range movements {
		running += m.Quantity
		if m.Type == models.MovementTypeInitialize || m.Type == models.MovementTypePurchase {
			baseline += m.Quantity
		}
		if m.BalanceAfter != running {
			t.Fatalf("movement #%d (%s): balance_after=%d, replayed=%d", m.ID, m.Type, m.BalanceAfter, running)
		}
	}
	if account.StockCurrent != running {
		t.Fatalf("stock_current=%d, replayed=%d", account.StockCurrent, running)
	}
	if account.StockInitial != baseline {
		t.Fatalf("stock_initial=%d, INITIALIZE+PURCHASE total=%d", account.StockInitial, baseline)
	}
}

func TestLedger_InitializeThenDepartAndReturn(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	account, err := models.InitializeStockAccount(ctx, 1000)
	if err != nil {
		t.Fatalf("InitializeStockAccount: %v", err)
	}
	if account.StockCurrent != 1000 || account.StockInitial != 1000 || account.LastAlertReference != 1000 {
		t.Fatalf("unexpected account after init: %+v", account)
	}

	// Re-initialization is a refused correction path, not an upsert.
	if _, err := models.InitializeStockAccount(ctx, 500); !errors.Is(err, models.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	tour, err := models.CreateTour(ctx, &models.NewTour{DriverName: "A. Benali"})
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}

	movement, err := models.RegisterDeparture(ctx, tour.ID, 50)
	if err != nil {
		t.Fatalf("RegisterDeparture: %v", err)
	}
	if movement.Quantity != -50 || movement.BalanceAfter != 950 {
		t.Fatalf("unexpected departure movement: %+v", movement)
	}

	result, err := models.RegisterTourReturn(ctx, tour.ID, 50, 45)
	if err != nil {
		t.Fatalf("RegisterTourReturn: %v", err)
	}
	if result.Surplus != 0 || result.Loss != 5 {
		t.Fatalf("expected {surplus:0 loss:5}, got %+v", result)
	}

	// 1000 - 50 departed + 45 returned; the 5 lost crates stay implicitly
	// off the balance until conflict settlement realizes them.
	account, err = models.GetStockAccount(ctx)
	if err != nil {
		t.Fatalf("GetStockAccount: %v", err)
	}
	if account.StockCurrent != 995 {
		t.Fatalf("expected stock 995, got %d", account.StockCurrent)
	}

	updatedTour, err := models.FetchTour(ctx, tour.ID)
	if err != nil {
		t.Fatalf("FetchTour: %v", err)
	}
	if updatedTour.CratesDeparted != 50 || updatedTour.CratesReturned != 45 {
		t.Fatalf("unexpected tour counters: %+v", updatedTour)
	}
	if updatedTour.Status != models.TourStatusConflict {
		t.Fatalf("expected tour status CONFLICT, got %s", updatedTour.Status)
	}

	assertLedgerConsistent(t)
}

func TestLedger_SurplusReturnWritesTwoMovements(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	if _, err := models.InitializeStockAccount(ctx, 500); err != nil {
		t.Fatalf("InitializeStockAccount: %v", err)
	}
	tour, err := models.CreateTour(ctx, &models.NewTour{DriverName: "M. Fares"})
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}
	if _, err := models.RegisterDeparture(ctx, tour.ID, 40); err != nil {
		t.Fatalf("RegisterDeparture: %v", err)
	}

	result, err := models.RegisterTourReturn(ctx, tour.ID, 40, 50)
	if err != nil {
		t.Fatalf("RegisterTourReturn: %v", err)
	}
	if result.Surplus != 10 || result.Loss != 0 {
		t.Fatalf("expected {surplus:10 loss:0}, got %+v", result)
	}

	account, err := models.GetStockAccount(ctx)
	if err != nil {
		t.Fatalf("GetStockAccount: %v", err)
	}
	// 500 - 40 + 50: the balance grows by exactly the returned count.
	if account.StockCurrent != 510 {
		t.Fatalf("expected stock 510, got %d", account.StockCurrent)
	}

	movements, err := models.AllMovements(ctx)
	if err != nil {
		t.Fatalf("AllMovements: %v", err)
	}
	last := movements[len(movements)-1]
	beforeLast := movements[len(movements)-2]
	if beforeLast.Type != models.MovementTypeReturn || beforeLast.Quantity != 40 {
		t.Fatalf("expected RETURN(+40) before SURPLUS, got %+v", beforeLast)
	}
	if last.Type != models.MovementTypeSurplus || last.Quantity != 10 {
		t.Fatalf("expected SURPLUS(+10) last, got %+v", last)
	}

	assertLedgerConsistent(t)
}

func TestLedger_RequiresInitialization(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	tour, err := models.CreateTour(ctx, &models.NewTour{})
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}

	if _, err := models.RegisterDeparture(ctx, tour.ID, 10); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("RegisterDeparture: expected ErrNotInitialized, got %v", err)
	}
	if _, err := models.RegisterTourReturn(ctx, tour.ID, 10, 10); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("RegisterTourReturn: expected ErrNotInitialized, got %v", err)
	}
	if _, err := models.AdjustStock(ctx, -5, "count correction"); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("AdjustStock: expected ErrNotInitialized, got %v", err)
	}
	if _, err := models.PurchaseCrates(ctx, 5, "", ""); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("PurchaseCrates: expected ErrNotInitialized, got %v", err)
	}
	if _, err := models.ResetAlertReference(ctx); !errors.Is(err, models.ErrNotInitialized) {
		t.Fatalf("ResetAlertReference: expected ErrNotInitialized, got %v", err)
	}
}

func TestLedger_AdjustmentRequiresReason(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	if _, err := models.InitializeStockAccount(ctx, 300); err != nil {
		t.Fatalf("InitializeStockAccount: %v", err)
	}

	if _, err := models.AdjustStock(ctx, -20, ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation on blank reason, got %v", err)
	}
	if _, err := models.AdjustStock(ctx, -20, "   "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation on whitespace reason, got %v", err)
	}
	if _, err := models.AdjustStock(ctx, 0, "no-op"); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity on zero delta, got %v", err)
	}

	account, err := models.AdjustStock(ctx, -20, "inventory count correction")
	if err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	if account.StockCurrent != 280 {
		t.Fatalf("expected stock 280, got %d", account.StockCurrent)
	}

	assertLedgerConsistent(t)
}

func TestLedger_PurchaseMovesBaselineAndAlertReference(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	if _, err := models.InitializeStockAccount(ctx, 100); err != nil {
		t.Fatalf("InitializeStockAccount: %v", err)
	}
	if _, err := models.AdjustStock(ctx, -30, "breakage after storm"); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}

	account, err := models.PurchaseCrates(ctx, 50, "supplier order 2214", "")
	if err != nil {
		t.Fatalf("PurchaseCrates: %v", err)
	}
	if account.StockCurrent != 120 || account.StockInitial != 150 {
		t.Fatalf("unexpected account after purchase: %+v", account)
	}
	// A purchase redefines the drawdown baseline.
	if account.LastAlertReference != 120 {
		t.Fatalf("expected alert reference 120, got %d", account.LastAlertReference)
	}

	if _, err := models.PurchaseCrates(ctx, 0, "", ""); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity on zero purchase, got %v", err)
	}

	assertLedgerConsistent(t)
}

func TestLedger_PurchaseIdempotencyKeyDeduplicates(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	if _, err := models.InitializeStockAccount(ctx, 100); err != nil {
		t.Fatalf("InitializeStockAccount: %v", err)
	}

	if _, err := models.PurchaseCrates(ctx, 25, "order 17", "client-key-17"); err != nil {
		t.Fatalf("PurchaseCrates: %v", err)
	}
	if _, err := models.PurchaseCrates(ctx, 25, "order 17", "client-key-17"); !errors.Is(err, models.ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation on replay, got %v", err)
	}

	account, err := models.GetStockAccount(ctx)
	if err != nil {
		t.Fatalf("GetStockAccount: %v", err)
	}
	if account.StockCurrent != 125 {
		t.Fatalf("replayed purchase must not double-apply; stock=%d", account.StockCurrent)
	}

	assertLedgerConsistent(t)
}

func TestLedger_DepartureValidation(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	if _, err := models.InitializeStockAccount(ctx, 100); err != nil {
		t.Fatalf("InitializeStockAccount: %v", err)
	}

	tour, err := models.CreateTour(ctx, &models.NewTour{})
	if err != nil {
		t.Fatalf("CreateTour: %v", err)
	}

	if _, err := models.RegisterDeparture(ctx, tour.ID, 0); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := models.RegisterDeparture(ctx, tour.ID, -3); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := models.RegisterTourReturn(ctx, tour.ID, -1, 0); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
