// Package booking_service wires the HTTP surface of the booking service: the
// write endpoints behind the identity header and the availability oracle.
package booking_service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roamstay-booking-ledger/internal/booking_service/handler"
	"github.com/roamstay-booking-ledger/internal/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	bookingHandler *handler.BookingHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		bookings := v1.Group("/bookings")
		{
			// Availability is an open read; writes require a caller identity
			bookings.POST("/availability", bookingHandler.CheckAvailability)
			bookings.GET("/:id", bookingHandler.GetByID)

			authed := bookings.Group("")
			authed.Use(middleware.Identity())
			{
				authed.POST("", bookingHandler.Create)
				authed.PUT("/:id/cancel", bookingHandler.Cancel)
			}
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
