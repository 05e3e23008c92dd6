package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/models"
)

// ledger-verify replays the crate movement table and checks the audit
// invariants offline:
//   - balance_after on each row equals the previous balance_after plus the
//     row's quantity (starting from zero)
//   - the account's stock_current equals the last balance_after
//   - stock_initial equals the sum of INITIALIZE and PURCHASE quantities
//
// Exit code 1 on any violation, so it can run as a cron'd health check.
func main() {
	verbose := flag.Bool("verbose", false, "Print every movement while replaying")
	flag.Parse()

	config.ConnectDatabase()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	var account models.StockAccount
	if err := db.First(&account).Error; err != nil {
		logger.WithField("err", err.Error()).Info("no stock account; nothing to verify")
		return
	}

	var movements []*models.CrateMovement
	if err := db.Order("id ASC").Find(&movements).Error; err != nil {
		logger.Fatal(err)
	}

	violations := 0
	running := 0
	baseline := 0
	for _, m := range movements {
		running += m.Quantity
		if m.Type == models.MovementTypeInitialize || m.Type == models.MovementTypePurchase {
			baseline += m.Quantity
		}
		if *verbose {
			fmt.Printf("#%d %-25s qty=%+d balance_after=%d\n", m.ID, m.Type, m.Quantity, m.BalanceAfter)
		}
		if m.BalanceAfter != running {
			violations++
			logger.WithFields(logrus.Fields{
				"movement_id":   m.ID,
				"type":          m.Type,
				"balance_after": m.BalanceAfter,
				"replayed":      running,
			}).Error("balance_after does not match replayed balance")
			// Resynchronize on the stored snapshot so one bad row does not
			// cascade into a violation on every row after it.
			running = m.BalanceAfter
		}
	}

	if account.StockCurrent != running {
		violations++
		logger.WithFields(logrus.Fields{
			"stock_current": account.StockCurrent,
			"replayed":      running,
		}).Error("stock_current does not match replayed balance")
	}
	if account.StockInitial != baseline {
		violations++
		logger.WithFields(logrus.Fields{
			"stock_initial": account.StockInitial,
			"baseline":      baseline,
		}).Error("stock_initial does not match INITIALIZE+PURCHASE total")
	}

	if violations > 0 {
		fmt.Fprintf(os.Stderr, "ledger-verify: %d violation(s) across %d movement(s)\n", violations, len(movements))
		os.Exit(1)
	}
	fmt.Printf("ledger-verify: OK (%d movement(s), balance %d)\n", len(movements), account.StockCurrent)
}
