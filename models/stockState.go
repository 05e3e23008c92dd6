package models

import (
	"context"
	"errors"

	"github.com/transdispo/crates_backend/config"
	"gorm.io/gorm"
)

// StockState is the composite read model the reporting screens consume:
// the ledger balance combined with live tour data and settled conflicts.
// Pure projection; no writes.
type StockState struct {
	Initialized        bool `json:"initialized"`
	StockInitial       int  `json:"stock_initial"`
	StockCurrent       int  `json:"stock_current"`
	StockInTransit     int  `json:"stock_in_transit"`
	StockLostToDate    int  `json:"stock_lost_to_date"`
	LastAlertReference int  `json:"last_alert_reference"`
	AlertThresholdPct  int  `json:"alert_threshold_pct"`
	AlertActive        bool `json:"alert_active"`
}

// GetStockState derives the composite state. An uninitialized account is a
// normal answer here, not an error: the zeroed state with
// initialized=false.
//
// stock_in_transit sums (departed - returned) over tours still on the
// road; stock_lost_to_date sums, over settled conflicts, the crates that
// were paid for instead of physically returned.
func GetStockState(ctx context.Context, alertThresholdPct int) (*StockState, error) {
	db := config.GetDB()

	state := &StockState{AlertThresholdPct: alertThresholdPct}

	var account StockAccount
	err := db.WithContext(ctx).First(&account, stockAccountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}

	state.Initialized = account.Initialized != nil && *account.Initialized
	state.StockInitial = account.StockInitial
	state.StockCurrent = account.StockCurrent
	state.LastAlertReference = account.LastAlertReference

	var inTransit int
	if err := db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(crates_departed - crates_returned), 0)
		FROM tours
		WHERE status IN (?)
	`, ActiveTourStatuses()).Scan(&inTransit).Error; err != nil {
		return nil, err
	}
	state.StockInTransit = inTransit

	var lostToDate int
	if err := db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(quantity_lost - quantity_returned), 0)
		FROM crate_conflicts
		WHERE status = ?
	`, ConflictStatusResolved).Scan(&lostToDate).Error; err != nil {
		return nil, err
	}
	state.StockLostToDate = lostToDate

	// Integer arithmetic keeps the comparison exact:
	// (ref - current) / ref >= pct/100  <=>  (ref - current) * 100 >= pct * ref
	// guarded against a zero reference.
	if account.LastAlertReference > 0 {
		drawdown := account.LastAlertReference - account.StockCurrent
		state.AlertActive = drawdown*100 >= alertThresholdPct*account.LastAlertReference
	}

	return state, nil
}
