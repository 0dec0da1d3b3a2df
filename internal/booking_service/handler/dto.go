package handler

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for booking dates. Dates are whole days in
// UTC; the time of day never matters for a stay.
const dateLayout = "2006-01-02"

// CreateBookingRequest represents a request to create a new booking
type CreateBookingRequest struct {
	PropertyID string `json:"property_id" binding:"required,uuid"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Guests     int    `json:"guests" binding:"required,gt=0"`
	Comments   string `json:"comments,omitempty" binding:"max=1000"`
}

// AvailabilityRequest represents a request to check a property's availability
type AvailabilityRequest struct {
	PropertyID string `json:"property_id" binding:"required,uuid"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID              string `json:"id"`
	PropertyID      string `json:"property_id"`
	RequesterID     string `json:"requester_id"`
	OwnerID         string `json:"owner_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Guests          int    `json:"guests"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	Comments        string `json:"comments,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// AvailabilityResponse represents an availability answer in API responses
type AvailabilityResponse struct {
	Available bool     `json:"available"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// parseDate parses a wire date into a UTC midnight timestamp
func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in %s format", field, dateLayout)
	}
	return t, nil
}
