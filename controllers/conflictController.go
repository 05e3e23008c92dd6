package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/models"
)

func settlementTerms() models.SettlementTerms {
	return models.SettlementTerms{UnitValue: config.CrateUnitValue()}
}

func conflictIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conflict id"})
		return 0, false
	}
	return id, true
}

// CreateConflict handles POST /api/conflicts
func CreateConflict(c *gin.Context) {
	var input models.NewCrateConflict
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conflict, err := models.CreateCrateConflict(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "controllers", "CreateConflict", err)
		return
	}
	c.JSON(http.StatusCreated, conflict)
}

// GetConflictState handles GET /api/conflicts/:id/state
func GetConflictState(c *gin.Context) {
	id, ok := conflictIdParam(c)
	if !ok {
		return
	}

	state, err := models.GetConflictSettlementState(c.Request.Context(), id, settlementTerms())
	if err != nil {
		respondError(c, "controllers", "GetConflictState", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type crateReturnInput struct {
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

// RegisterCrateReturn handles POST /api/conflicts/:id/returns
func RegisterCrateReturn(c *gin.Context) {
	id, ok := conflictIdParam(c)
	if !ok {
		return
	}
	var input crateReturnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conflict, err := models.RegisterCrateReturn(
		c.Request.Context(), id, input.Quantity, input.Notes,
		settlementTerms(), c.GetHeader("X-Idempotency-Key"),
	)
	if err != nil {
		respondError(c, "controllers", "RegisterCrateReturn", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conflict": conflict,
		"state":    conflict.SettlementState(settlementTerms()),
	})
}

type conflictPaymentInput struct {
	Amount      decimal.Decimal    `json:"amount" binding:"required"`
	PaymentMode models.PaymentMode `json:"payment_mode" binding:"required"`
	Notes       string             `json:"notes"`
}

// RegisterConflictPayment handles POST /api/conflicts/:id/payments
func RegisterConflictPayment(c *gin.Context) {
	id, ok := conflictIdParam(c)
	if !ok {
		return
	}
	var input conflictPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conflict, err := models.RegisterConflictPayment(
		c.Request.Context(), id, input.Amount, input.PaymentMode, input.Notes,
		settlementTerms(), c.GetHeader("X-Idempotency-Key"),
	)
	if err != nil {
		respondError(c, "controllers", "RegisterConflictPayment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conflict": conflict,
		"state":    conflict.SettlementState(settlementTerms()),
	})
}

// ListConflictResolutions handles GET /api/conflicts/:id/resolutions
func ListConflictResolutions(c *gin.Context) {
	id, ok := conflictIdParam(c)
	if !ok {
		return
	}
	if _, err := models.FetchConflict(c.Request.Context(), id); err != nil {
		respondError(c, "controllers", "ListConflictResolutions", err)
		return
	}

	resolutions, err := models.ResolutionsByConflict(c.Request.Context(), id)
	if err != nil {
		respondError(c, "controllers", "ListConflictResolutions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolutions": resolutions})
}
