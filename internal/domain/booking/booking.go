package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidDateRange  = errors.New("end date must be after start date")
	ErrStartDateInPast   = errors.New("start date must not be in the past")
	ErrInvalidGuestCount = errors.New("guest count must be positive")
	ErrTooManyGuests     = errors.New("guest count exceeds property capacity")
	ErrInvalidRate       = errors.New("nightly rate must be positive")
)

// Booking represents an authoritative reservation of a property for a
// half-open date range [StartDate, EndDate). The ID is minted here, not by
// the datastore, so the same value serves as the bus partition key.
type Booking struct {
	ID              uuid.UUID `json:"id"`
	PropertyID      uuid.UUID `json:"property_id"`
	RequesterID     uuid.UUID `json:"requester_id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Guests          int       `json:"guests"`
	TotalPriceCents int64     `json:"total_price_cents"` // Stored in cents/minor units
	Status          Status    `json:"status"`
	Comments        string    `json:"comments,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewBooking validates the request against the property's constraints and
// returns a PENDING booking priced at nights * nightlyRateCents.
func NewBooking(propertyID, requesterID, ownerID uuid.UUID, start, end time.Time, guests, maxGuests int, nightlyRateCents int64, comments string) (*Booking, error) {
	if !start.Before(end) {
		return nil, ErrInvalidDateRange
	}
	if start.Before(truncateToDay(time.Now().UTC())) {
		return nil, ErrStartDateInPast
	}
	if guests <= 0 {
		return nil, ErrInvalidGuestCount
	}
	if maxGuests > 0 && guests > maxGuests {
		return nil, ErrTooManyGuests
	}
	if nightlyRateCents <= 0 {
		return nil, ErrInvalidRate
	}

	now := time.Now()
	return &Booking{
		ID:              uuid.New(),
		PropertyID:      propertyID,
		RequesterID:     requesterID,
		OwnerID:         ownerID,
		StartDate:       start,
		EndDate:         end,
		Guests:          guests,
		TotalPriceCents: int64(nights(start, end)) * nightlyRateCents,
		Status:          StatusPending,
		Comments:        comments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Nights returns the number of nights covered by the booking
func (b *Booking) Nights() int {
	return nights(b.StartDate, b.EndDate)
}

// CancellableBy reports whether userID holds the right to cancel the
// booking. Only the requester and the property owner do.
func (b *Booking) CancellableBy(userID uuid.UUID) bool {
	return userID == b.RequesterID || userID == b.OwnerID
}

// OverlapsRange reports whether the booking's [StartDate, EndDate) intersects
// the half-open range [start, end). A booking that ends exactly when another
// starts does not overlap; the end date itself is free.
func (b *Booking) OverlapsRange(start, end time.Time) bool {
	return b.StartDate.Before(end) && b.EndDate.After(start)
}

func nights(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
