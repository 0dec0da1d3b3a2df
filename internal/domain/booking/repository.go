package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines booking persistence operations
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListBlockingByProperty returns all PENDING/ACCEPTED bookings for a
	// property, used by the availability oracle to compute conflicts.
	ListBlockingByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Booking, error)

	// FindOverlapping returns blocking bookings whose [start_date, end_date)
	// intersects [start, end). Run against a transaction, this is the
	// pre-commit re-check that closes the check-then-act race.
	FindOverlapping(ctx context.Context, propertyID uuid.UUID, start, end time.Time) ([]*Booking, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// Delete removes a booking. Only ever called as the compensating action
	// for a booking whose announcement to the bus failed.
	Delete(ctx context.Context, id uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
}

// ErrBookingNotFound indicates missing booking
type ErrBookingNotFound struct {
	BookingID uuid.UUID
}

func (e ErrBookingNotFound) Error() string {
	return "booking not found: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrBookingNotFound
func (e ErrBookingNotFound) Is(target error) bool {
	t, ok := target.(ErrBookingNotFound)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}

// ErrDateConflict indicates the requested range overlaps existing blocking
// bookings on the same property
type ErrDateConflict struct {
	PropertyID  uuid.UUID
	ConflictIDs []uuid.UUID
}

func (e ErrDateConflict) Error() string {
	return "requested dates conflict with existing bookings on property " + e.PropertyID.String()
}

// Is implements the errors.Is interface for ErrDateConflict
func (e ErrDateConflict) Is(target error) bool {
	_, ok := target.(ErrDateConflict)
	return ok
}

// ErrNotParticipant indicates a caller who is neither the requester nor the
// property owner of the booking they tried to act on
type ErrNotParticipant struct {
	BookingID uuid.UUID
	UserID    uuid.UUID
}

func (e ErrNotParticipant) Error() string {
	return "user " + e.UserID.String() + " is not a participant of booking " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrNotParticipant
func (e ErrNotParticipant) Is(target error) bool {
	_, ok := target.(ErrNotParticipant)
	return ok
}

// ErrIllegalTransition indicates a status change the lifecycle does not allow
type ErrIllegalTransition struct {
	BookingID uuid.UUID
	From      Status
	To        Status
}

func (e ErrIllegalTransition) Error() string {
	return "illegal status transition " + string(e.From) + " -> " + string(e.To) + " for booking " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrIllegalTransition
func (e ErrIllegalTransition) Is(target error) bool {
	_, ok := target.(ErrIllegalTransition)
	return ok
}
