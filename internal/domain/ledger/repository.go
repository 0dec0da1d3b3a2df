package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages ledger entry persistence. The interface is deliberately
// narrow (get, insert, update) so the projector owns the insert-or-merge
// reconciliation logic and stays testable without a live store.
type Repository interface {
	// GetByBookingID returns the entry or ErrEntryNotFound
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Entry, error)

	// Insert stores a new entry. Returns ErrDuplicateEntry when an entry for
	// the same booking already exists (unique index), which callers treat as
	// "another consumer got there first" and resolve by updating instead.
	Insert(ctx context.Context, entry *Entry) error

	// Update replaces the stored entry for entry.BookingID.
	// Returns ErrEntryNotFound if no entry exists.
	Update(ctx context.Context, entry *Entry) error

	// ListByProperty returns entries for a property, newest first
	ListByProperty(ctx context.Context, propertyID uuid.UUID, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	BookingID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}

// ErrDuplicateEntry indicates booking uniqueness violation in the ledger
type ErrDuplicateEntry struct {
	BookingID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}
