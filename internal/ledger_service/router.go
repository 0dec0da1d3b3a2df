// Package ledger_service wires the read-only HTTP surface of the ledger
// service over the projection store.
package ledger_service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roamstay-booking-ledger/internal/ledger_service/handler"
	"github.com/roamstay-booking-ledger/internal/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		entries := v1.Group("/ledger")
		{
			entries.GET("/bookings/:id", ledgerHandler.GetByBookingID)
			entries.GET("/properties/:id/entries", ledgerHandler.ListByProperty)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
