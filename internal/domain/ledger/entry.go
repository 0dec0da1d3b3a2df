// Package ledger holds the read-side projection of bookings. Entries are
// built purely from the event stream and must converge to the same state
// regardless of delivery order or duplication.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/domain/event"
)

// Entry mirrors a booking in the projector's store. Placeholder is true when
// a status event for the booking arrived before its creation event, so the
// status is known but the descriptive fields are not.
type Entry struct {
	BookingID       uuid.UUID      `json:"booking_id" bson:"booking_id"`
	PropertyID      uuid.UUID      `json:"property_id,omitempty" bson:"property_id,omitempty"`
	RequesterID     uuid.UUID      `json:"requester_id,omitempty" bson:"requester_id,omitempty"`
	OwnerID         uuid.UUID      `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	StartDate       time.Time      `json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate         time.Time      `json:"end_date,omitempty" bson:"end_date,omitempty"`
	Guests          int            `json:"guests,omitempty" bson:"guests,omitempty"`
	TotalPriceCents int64          `json:"total_price_cents,omitempty" bson:"total_price_cents,omitempty"`
	Status          booking.Status `json:"status" bson:"status"`
	Comments        string         `json:"comments,omitempty" bson:"comments,omitempty"`
	Placeholder     bool           `json:"placeholder" bson:"placeholder"`
	CreatedAt       time.Time      `json:"created_at" bson:"created_at"`
	LastEventAt     time.Time      `json:"last_event_at" bson:"last_event_at"`
}

// NewPlaceholder creates the partial entry recorded when a status event
// outruns the corresponding creation event. Only the id and status are known.
func NewPlaceholder(bookingID uuid.UUID, status booking.Status, eventAt time.Time) *Entry {
	return &Entry{
		BookingID:   bookingID,
		Status:      status,
		Placeholder: true,
		CreatedAt:   time.Now(),
		LastEventAt: eventAt,
	}
}

// NewFromRequested creates a full entry from a creation event
func NewFromRequested(p *event.BookingRequested) *Entry {
	return &Entry{
		BookingID:       p.BookingID,
		PropertyID:      p.PropertyID,
		RequesterID:     p.RequesterID,
		OwnerID:         p.OwnerID,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Guests:          p.Guests,
		TotalPriceCents: p.TotalPriceCents,
		Status:          p.Status,
		Comments:        p.Comments,
		Placeholder:     false,
		CreatedAt:       time.Now(),
		LastEventAt:     p.CreatedAt,
	}
}

// FillFromRequested merges a creation event into an existing placeholder.
// All descriptive fields are taken from the event, but the status recorded by
// the earlier status event wins over the event's own (older) status.
func (e *Entry) FillFromRequested(p *event.BookingRequested) {
	e.PropertyID = p.PropertyID
	e.RequesterID = p.RequesterID
	e.OwnerID = p.OwnerID
	e.StartDate = p.StartDate
	e.EndDate = p.EndDate
	e.Guests = p.Guests
	e.TotalPriceCents = p.TotalPriceCents
	e.Comments = p.Comments
	e.Placeholder = false
	e.LastEventAt = p.CreatedAt
	// e.Status is deliberately untouched
}

// ApplyStatus records a status event. Last write wins: events for one booking
// arrive in publish order per partition, so the newest dequeued status is the
// truth regardless of which event filled in the descriptive data.
func (e *Entry) ApplyStatus(status booking.Status, eventAt time.Time) {
	e.Status = status
	e.LastEventAt = eventAt
}
