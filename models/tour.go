package models

import (
	"context"
	"errors"
	"time"

	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/utils"
	"gorm.io/gorm"
)

// Tour is owned by the tour workflow; the ledger only references it and
// keeps the two crate counters current as departure/return events arrive.
// Driver assignment, matricule display and the rest of the tour lifecycle
// live outside this service.
type Tour struct {
	ID             int        `gorm:"primary_key" json:"id"`
	DriverName     string     `gorm:"size:100" json:"driver_name"`
	Status         TourStatus `gorm:"type:varchar(20);not null;default:'ONGOING';index" json:"status"`
	CratesDeparted int        `gorm:"not null;default:0" json:"crates_departed"`
	CratesReturned int        `gorm:"not null;default:0" json:"crates_returned"`
	CreatedBy      int        `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTour struct {
	DriverName string `json:"driver_name"`
}

// CreateTour is the handoff point for the tour workflow: it registers the
// tour row the ledger will reference on departure and return.
func CreateTour(ctx context.Context, input *NewTour) (*Tour, error) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	tour := Tour{
		DriverName: input.DriverName,
		Status:     TourStatusOngoing,
		CreatedBy:  userId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&tour).Error; err != nil {
		return nil, err
	}
	return &tour, nil
}

func FetchTour(ctx context.Context, id int) (*Tour, error) {
	db := config.GetDB()
	var tour Tour
	err := db.WithContext(ctx).First(&tour, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tour, nil
}
