// Package service contains the business logic of the booking service: the
// availability oracle and the write coordinator that runs the booking saga.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/roamstay-booking-ledger/internal/domain/booking"
)

// ErrBusUnavailable indicates the event bus rejected a publish after the
// local write succeeded and the write was rolled back. The request did not
// happen; the caller may retry it as a whole.
var ErrBusUnavailable = errors.New("event bus unavailable, request rolled back")

// ErrUpstreamUnavailable indicates a synchronous collaborator could not
// answer. The request was refused before any state changed.
var ErrUpstreamUnavailable = errors.New("upstream service unavailable")

// CreateBookingRequest carries the caller-supplied fields of a new booking
type CreateBookingRequest struct {
	PropertyID  uuid.UUID
	RequesterID uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	Guests      int
	Comments    string
}

// AvailabilityResult is the oracle's answer for a property and date range
type AvailabilityResult struct {
	Available   bool
	ConflictIDs []uuid.UUID
}

// AvailabilityService answers whether a property is free for a date range.
// The answer is advisory: it can go stale between the check and the write,
// which is why the coordinator re-checks inside its transaction.
type AvailabilityService interface {
	Check(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*AvailabilityResult, error)
}

// BookingService coordinates booking writes end to end
type BookingService interface {
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id, userID uuid.UUID) (*booking.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
}

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(pgx.Tx) error) error
}
