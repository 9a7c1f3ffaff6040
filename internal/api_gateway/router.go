package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecocollect-billing/internal/api_gateway/handler"
	"github.com/ecocollect-billing/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	billHandler *handler.BillHandler,
	walletHandler *handler.WalletHandler,
	rewardHandler *handler.RewardHandler,
	transactionHandler *handler.TransactionHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Principal())
	{
		// Bill and payment operations
		bills := v1.Group("/bills")
		{
			bills.GET("/my-bills", billHandler.ListMyBills)
			bills.GET("/check-outstanding", billHandler.CheckOutstanding)
			bills.POST("/:id/pay", billHandler.Pay)
			bills.POST("/pay-multiple", billHandler.PayMultiple)
			// Retained alias for older clients
			bills.POST("/batch-pay", billHandler.PayMultiple)
			bills.POST("/admin/generate/:collectionId", middleware.RequireAdmin(), billHandler.Generate)
		}

		// Wallet operations
		wallet := v1.Group("/wallet")
		{
			wallet.GET("/:residentId", walletHandler.Get)
			wallet.POST("/:residentId/add-funds", walletHandler.AddFunds)
		}

		// Reward operations
		v1.GET("/rewards", rewardHandler.List)

		// Audit log queries
		v1.GET("/transactions/my-transactions", transactionHandler.ListMine)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
