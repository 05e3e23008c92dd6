package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/models"
	"github.com/transdispo/crates_backend/models/reports"
)

type initializeStockInput struct {
	Quantity int `json:"quantity" binding:"required"`
}

// InitializeStock handles POST /api/stock/initialize
func InitializeStock(c *gin.Context) {
	var input initializeStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := models.InitializeStockAccount(c.Request.Context(), input.Quantity)
	if err != nil {
		respondError(c, "controllers", "InitializeStock", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

type departureInput struct {
	TourId   int `json:"tour_id" binding:"required"`
	Quantity int `json:"quantity" binding:"required"`
}

// RegisterDeparture handles POST /api/stock/departures
func RegisterDeparture(c *gin.Context) {
	var input departureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := models.RegisterDeparture(c.Request.Context(), input.TourId, input.Quantity)
	if err != nil {
		respondError(c, "controllers", "RegisterDeparture", err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

type tourReturnInput struct {
	TourId           int `json:"tour_id" binding:"required"`
	QuantityDeparted int `json:"quantity_departed"`
	QuantityReturned int `json:"quantity_returned"`
}

// RegisterTourReturn handles POST /api/stock/returns
func RegisterTourReturn(c *gin.Context) {
	var input tourReturnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := models.RegisterTourReturn(c.Request.Context(), input.TourId, input.QuantityDeparted, input.QuantityReturned)
	if err != nil {
		respondError(c, "controllers", "RegisterTourReturn", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStockState handles GET /api/stock/state
func GetStockState(c *gin.Context) {
	state, err := models.GetStockState(c.Request.Context(), config.StockAlertThresholdPct())
	if err != nil {
		respondError(c, "controllers", "GetStockState", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ListMovements handles GET /api/stock/movements
func ListMovements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	movements, total, err := models.PaginateMovements(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, "controllers", "ListMovements", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": total})
}

// ExportMovements handles GET /api/stock/movements/export
func ExportMovements(c *gin.Context) {
	movements, err := models.AllMovements(c.Request.Context())
	if err != nil {
		respondError(c, "controllers", "ExportMovements", err)
		return
	}

	f, err := reports.BuildMovementWorkbook(movements)
	if err != nil {
		respondError(c, "controllers", "ExportMovements", err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=crate-movements.xlsx")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "controllers", "ExportMovements", "write workbook", nil, err)
	}
}

type adjustStockInput struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// AdjustStock handles POST /api/stock/adjustments
func AdjustStock(c *gin.Context) {
	var input adjustStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := models.AdjustStock(c.Request.Context(), input.Delta, input.Reason)
	if err != nil {
		respondError(c, "controllers", "AdjustStock", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

type purchaseInput struct {
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

// PurchaseCrates handles POST /api/stock/purchases
func PurchaseCrates(c *gin.Context) {
	var input purchaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := models.PurchaseCrates(c.Request.Context(), input.Quantity, input.Notes, c.GetHeader("X-Idempotency-Key"))
	if err != nil {
		respondError(c, "controllers", "PurchaseCrates", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// AcknowledgeAlert handles POST /api/stock/alert-ack
func AcknowledgeAlert(c *gin.Context) {
	account, err := models.ResetAlertReference(c.Request.Context())
	if err != nil {
		respondError(c, "controllers", "AcknowledgeAlert", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// CreateTour handles POST /api/tours (tour workflow handoff)
func CreateTour(c *gin.Context) {
	var input models.NewTour
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tour, err := models.CreateTour(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "controllers", "CreateTour", err)
		return
	}
	c.JSON(http.StatusCreated, tour)
}
