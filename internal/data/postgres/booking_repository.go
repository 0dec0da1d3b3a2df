// Package postgres provides the PostgreSQL implementation of the booking
// repository. The bookings table is the authoritative record; all writes to
// it happen in this package, under transactions owned by the coordinator.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/platform/persistence"
)

const bookingColumns = `id, property_id, requester_id, owner_id, start_date, end_date, guests, total_price_cents, status, comments, created_at, updated_at`

// BookingRepository implements the booking.Repository interface for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// NewBookingRepositoryWithQuerier creates a repository over an arbitrary
// querier. Used by tests.
func NewBookingRepositoryWithQuerier(logger *slog.Logger, querier persistence.Querier) booking.Repository {
	return &BookingRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the availability re-check
// and the insert observe the same snapshot.
func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new booking
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.PropertyID,
		b.RequesterID,
		b.OwnerID,
		b.StartDate,
		b.EndDate,
		b.Guests,
		b.TotalPriceCents,
		b.Status,
		b.Comments,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create booking", "booking_id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`

	b, err := scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to get booking", "booking_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return b, nil
}

// ListBlockingByProperty returns all date-holding bookings for a property
func (r *BookingRepository) ListBlockingByProperty(ctx context.Context, propertyID uuid.UUID) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE property_id = $1 AND status IN ($2, $3)
		ORDER BY start_date ASC
	`

	rows, err := r.querier.Query(ctx, query, propertyID, booking.StatusPending, booking.StatusAccepted)
	if err != nil {
		r.logger.Error("Failed to list blocking bookings", "property_id", propertyID.String(), "error", err)
		return nil, fmt.Errorf("failed to list blocking bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// FindOverlapping returns blocking bookings intersecting [start, end).
// Half-open interval semantics: stored [s, e) conflicts iff s < end AND e > start,
// so a booking ending exactly on another's start date is not a conflict.
func (r *BookingRepository) FindOverlapping(ctx context.Context, propertyID uuid.UUID, start, end time.Time) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE property_id = $1
		  AND status IN ($4, $5)
		  AND start_date < $3
		  AND end_date > $2
		ORDER BY start_date ASC
	`

	rows, err := r.querier.Query(ctx, query, propertyID, start, end, booking.StatusPending, booking.StatusAccepted)
	if err != nil {
		r.logger.Error("Failed to find overlapping bookings", "property_id", propertyID.String(), "error", err)
		return nil, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// UpdateStatus updates the booking's status.
// Returns ErrBookingNotFound if the booking doesn't exist.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update booking status", "booking_id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{BookingID: id}
	}

	return nil
}

// Delete removes a booking. This is the compensating action for a booking
// whose announcement failed; after it, no read path can observe the booking.
func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM bookings WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete booking", "booking_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{BookingID: id}
	}

	return nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID,
		&b.PropertyID,
		&b.RequesterID,
		&b.OwnerID,
		&b.StartDate,
		&b.EndDate,
		&b.Guests,
		&b.TotalPriceCents,
		&b.Status,
		&b.Comments,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*booking.Booking, error) {
	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bookings: %w", err)
	}
	return bookings, nil
}
