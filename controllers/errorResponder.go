package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/models"
	"github.com/transdispo/crates_backend/utils"
)

// respondError maps sentinel errors to HTTP status codes and logs the rest.
func respondError(c *gin.Context, moduleName string, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrAlreadyInitialized),
		errors.Is(err, models.ErrDuplicateOperation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotInitialized),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrExceedsRemaining),
		errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), moduleName, funcName, "request failed", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
