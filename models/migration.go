package models

import (
	"log"

	"github.com/transdispo/crates_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&StockAccount{}, &CrateMovement{},
		&Tour{},
		&CrateConflict{}, &ConflictResolution{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
