package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roamstay-booking-ledger/internal/booking_service/client"
	"github.com/roamstay-booking-ledger/internal/booking_service/service"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/middleware"
)

// BookingHandler handles HTTP requests for booking operations
type BookingHandler struct {
	bookingService      service.BookingService
	availabilityService service.AvailabilityService
	logger              *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(logger *slog.Logger, bookingService service.BookingService, availabilityService service.AvailabilityService) *BookingHandler {
	return &BookingHandler{
		bookingService:      bookingService,
		availabilityService: availabilityService,
		logger:              logger,
	}
}

// Create handles creation of a new booking. A 201 means the booking row is
// committed and its creation event is on the bus; a 503 means neither.
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing caller identity")
		return
	}

	propertyID, start, end, ok := h.parseBookingFields(c, req.PropertyID, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	b, err := h.bookingService.CreateBooking(c.Request.Context(), &service.CreateBookingRequest{
		PropertyID:  propertyID,
		RequesterID: userID,
		StartDate:   start,
		EndDate:     end,
		Guests:      req.Guests,
		Comments:    req.Comments,
	})
	if err != nil {
		h.respondCreateError(c, err)
		return
	}

	RespondCreated(c, mapBookingToResponse(b))
}

// Cancel handles cancellation of a booking by its requester or owner
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing caller identity")
		return
	}

	b, err := h.bookingService.CancelBooking(c.Request.Context(), id, userID)
	if err != nil {
		var notFound booking.ErrBookingNotFound
		var notParticipant booking.ErrNotParticipant
		var illegal booking.ErrIllegalTransition
		switch {
		case errors.As(err, &notFound):
			RespondNotFound(c, "Booking not found")
		case errors.As(err, &notParticipant):
			RespondForbidden(c, "Only the requester or the property owner may cancel a booking")
		case errors.As(err, &illegal):
			RespondConflict(c, "ILLEGAL_TRANSITION", illegal.Error(), gin.H{
				"current_status": string(illegal.From),
			})
		case errors.Is(err, service.ErrBusUnavailable):
			RespondServiceUnavailable(c, "BUS_UNAVAILABLE", "Cancellation was not applied; event bus unavailable, retry later")
		default:
			h.logger.Error("Failed to cancel booking", "booking_id", id.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// GetByID retrieves a booking by its ID, returning 404 if not found
func (h *BookingHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	b, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		var notFound booking.ErrBookingNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Booking not found")
			return
		}
		h.logger.Error("Failed to get booking", "booking_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapBookingToResponse(b))
}

// CheckAvailability answers whether a property is free for a date range
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	propertyID, start, end, ok := h.parseBookingFields(c, req.PropertyID, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	result, err := h.availabilityService.Check(c.Request.Context(), propertyID, start, end)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidDateRange) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Availability check failed", "property_id", propertyID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, AvailabilityResponse{
		Available: result.Available,
		Conflicts: uuidsToStrings(result.ConflictIDs),
	})
}

// parseBookingFields parses the shared property-and-dates triple, responding
// with a 400 itself when anything is malformed
func (h *BookingHandler) parseBookingFields(c *gin.Context, propertyIDRaw, startRaw, endRaw string) (uuid.UUID, time.Time, time.Time, bool) {
	propertyID, err := uuid.Parse(propertyIDRaw)
	if err != nil {
		RespondBadRequest(c, "Invalid property ID")
		return uuid.Nil, time.Time{}, time.Time{}, false
	}

	start, err := parseDate("start_date", startRaw)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return uuid.Nil, time.Time{}, time.Time{}, false
	}

	end, err := parseDate("end_date", endRaw)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return uuid.Nil, time.Time{}, time.Time{}, false
	}

	return propertyID, start, end, true
}

func (h *BookingHandler) respondCreateError(c *gin.Context, err error) {
	var propertyNotFound client.ErrPropertyNotFound
	var dateConflict booking.ErrDateConflict

	switch {
	case errors.Is(err, booking.ErrInvalidDateRange),
		errors.Is(err, booking.ErrStartDateInPast),
		errors.Is(err, booking.ErrInvalidGuestCount),
		errors.Is(err, booking.ErrTooManyGuests),
		errors.Is(err, booking.ErrInvalidRate):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &propertyNotFound):
		RespondNotFound(c, "Property not found")
	case errors.As(err, &dateConflict):
		RespondConflict(c, "DATE_CONFLICT", "Requested dates are not available", gin.H{
			"conflicting_booking_ids": uuidsToStrings(dateConflict.ConflictIDs),
		})
	case errors.Is(err, service.ErrUpstreamUnavailable):
		RespondServiceUnavailable(c, "UPSTREAM_UNAVAILABLE", "A required service is unavailable, retry later")
	case errors.Is(err, service.ErrBusUnavailable):
		RespondServiceUnavailable(c, "BUS_UNAVAILABLE", "Booking was not created; event bus unavailable, retry later")
	default:
		h.logger.Error("Failed to create booking", "error", err)
		RespondInternalError(c)
	}
}

// mapBookingToResponse maps a booking entity to a booking response DTO
func mapBookingToResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID.String(),
		PropertyID:      b.PropertyID.String(),
		RequesterID:     b.RequesterID.String(),
		OwnerID:         b.OwnerID.String(),
		StartDate:       b.StartDate.Format(dateLayout),
		EndDate:         b.EndDate.Format(dateLayout),
		Guests:          b.Guests,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		Comments:        b.Comments,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func uuidsToStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
