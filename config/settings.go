package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Runtime settings for the crate ledger. Read by the HTTP layer and passed
// into the core as explicit parameters; the core itself never reads env
// inside a transaction.

const (
	defaultCrateUnitValue    = 50
	defaultAlertThresholdPct = 20
)

// CrateUnitValue is the monetary value of one crate, used to price a
// shortage during conflict settlement.
//
// Set via env:
// - CRATE_UNIT_VALUE=50.00
func CrateUnitValue() decimal.Decimal {
	v := strings.TrimSpace(os.Getenv("CRATE_UNIT_VALUE"))
	if v == "" {
		return decimal.NewFromInt(defaultCrateUnitValue)
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.NewFromInt(defaultCrateUnitValue)
	}
	return d
}

// StockAlertThresholdPct is the percentage drawdown from the last
// acknowledged reference that raises the stock alert flag.
//
// Set via env:
// - STOCK_ALERT_THRESHOLD_PCT=20
func StockAlertThresholdPct() int {
	v := strings.TrimSpace(os.Getenv("STOCK_ALERT_THRESHOLD_PCT"))
	if v == "" {
		return defaultAlertThresholdPct
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 100 {
		return defaultAlertThresholdPct
	}
	return n
}
