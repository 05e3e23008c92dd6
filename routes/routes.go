package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/transdispo/crates_backend/controllers"
)

// RegisterRoutes wires the crate ledger and conflict settlement endpoints.
func RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")

	stock := api.Group("/stock")
	{
		stock.POST("/initialize", controllers.InitializeStock)
		stock.POST("/departures", controllers.RegisterDeparture)
		stock.POST("/returns", controllers.RegisterTourReturn)
		stock.GET("/state", controllers.GetStockState)
		stock.GET("/movements", controllers.ListMovements)
		stock.GET("/movements/export", controllers.ExportMovements)
		stock.POST("/adjustments", controllers.AdjustStock)
		stock.POST("/purchases", controllers.PurchaseCrates)
		stock.POST("/alert-ack", controllers.AcknowledgeAlert)
	}

	api.POST("/tours", controllers.CreateTour)

	conflicts := api.Group("/conflicts")
	{
		conflicts.POST("", controllers.CreateConflict)
		conflicts.GET("/:id/state", controllers.GetConflictState)
		conflicts.GET("/:id/resolutions", controllers.ListConflictResolutions)
		conflicts.POST("/:id/returns", controllers.RegisterCrateReturn)
		conflicts.POST("/:id/payments", controllers.RegisterConflictPayment)
	}
}
