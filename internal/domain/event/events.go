// Package event defines the wire format shared by the booking coordinator
// and every consumer. Events are published with the booking id as the
// partition key, so per-booking order holds within one producer's stream;
// nothing else about cross-topic or cross-producer order is guaranteed.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
)

// Event types
const (
	TypeBookingRequested = "booking-requested"
	TypeStatusChanged    = "booking-status-changed"
)

// Envelope wraps every message on the bus
type Envelope struct {
	Type      string          `json:"type"`
	BookingID uuid.UUID       `json:"booking_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// BookingRequested carries the full booking snapshot at creation time
type BookingRequested struct {
	BookingID       uuid.UUID      `json:"booking_id"`
	PropertyID      uuid.UUID      `json:"property_id"`
	RequesterID     uuid.UUID      `json:"requester_id"`
	OwnerID         uuid.UUID      `json:"owner_id"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	Guests          int            `json:"guests"`
	TotalPriceCents int64          `json:"total_price_cents"`
	Status          booking.Status `json:"status"`
	Comments        string         `json:"comments,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// BookingStatusChanged carries only the id and the new status
type BookingStatusChanged struct {
	BookingID uuid.UUID      `json:"booking_id"`
	Status    booking.Status `json:"status"`
	UpdatedBy uuid.UUID      `json:"updated_by"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewBookingRequested builds the creation event envelope for a booking
func NewBookingRequested(b *booking.Booking) (*Envelope, error) {
	payload := BookingRequested{
		BookingID:       b.ID,
		PropertyID:      b.PropertyID,
		RequesterID:     b.RequesterID,
		OwnerID:         b.OwnerID,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		Guests:          b.Guests,
		TotalPriceCents: b.TotalPriceCents,
		Status:          b.Status,
		Comments:        b.Comments,
		CreatedAt:       b.CreatedAt,
	}
	return wrap(TypeBookingRequested, b.ID, payload)
}

// NewStatusChanged builds the status event envelope for a booking
func NewStatusChanged(bookingID uuid.UUID, status booking.Status, updatedBy uuid.UUID) (*Envelope, error) {
	payload := BookingStatusChanged{
		BookingID: bookingID,
		Status:    status,
		UpdatedBy: updatedBy,
		Timestamp: time.Now().UTC(),
	}
	return wrap(TypeStatusChanged, bookingID, payload)
}

func wrap(eventType string, bookingID uuid.UUID, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		Type:      eventType,
		BookingID: bookingID,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Key returns the bus partition key for the envelope
func (e *Envelope) Key() string {
	return e.BookingID.String()
}

// DecodeBookingRequested unmarshals the payload of a booking-requested envelope
func (e *Envelope) DecodeBookingRequested() (*BookingRequested, error) {
	if e.Type != TypeBookingRequested {
		return nil, fmt.Errorf("envelope type is %q, not %q", e.Type, TypeBookingRequested)
	}
	var p BookingRequested
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return &p, nil
}

// DecodeStatusChanged unmarshals the payload of a booking-status-changed envelope
func (e *Envelope) DecodeStatusChanged() (*BookingStatusChanged, error) {
	if e.Type != TypeStatusChanged {
		return nil, fmt.Errorf("envelope type is %q, not %q", e.Type, TypeStatusChanged)
	}
	var p BookingStatusChanged
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return &p, nil
}
