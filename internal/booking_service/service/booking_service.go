package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/roamstay-booking-ledger/internal/booking_service/client"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/domain/event"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/producers"
)

// BookingServiceImpl coordinates the booking write path. A creation runs as a
// short saga: validate against collaborators, reserve the dates in a local
// transaction, then announce the booking on the bus. If the announcement
// fails after the commit, the local write is compensated by deleting the
// booking, so no booking can exist locally without its creation event on the
// bus.
type BookingServiceImpl struct {
	db                TxRunner
	repo              booking.Repository
	properties        client.PropertyClient
	availability      client.AvailabilityClient
	requestedProducer producers.EventPublisher
	statusProducer    producers.EventPublisher
	logger            *slog.Logger
}

// NewBookingService creates a new booking write coordinator. Creation and
// status events go to separate topics, each through its own producer. The
// availability client may be nil when no remote oracle is deployed; the
// in-transaction re-check still guards against double booking.
func NewBookingService(
	logger *slog.Logger,
	db TxRunner,
	repo booking.Repository,
	properties client.PropertyClient,
	availability client.AvailabilityClient,
	requestedProducer producers.EventPublisher,
	statusProducer producers.EventPublisher,
) *BookingServiceImpl {
	return &BookingServiceImpl{
		db:                db,
		repo:              repo,
		properties:        properties,
		availability:      availability,
		requestedProducer: requestedProducer,
		statusProducer:    statusProducer,
		logger:            logger,
	}
}

// CreateBooking runs the booking creation saga.
//
// Validation failures and date conflicts leave no trace. A bus failure after
// the insert deletes the booking before returning ErrBusUnavailable, so the
// caller can safely retry the whole request.
func (s *BookingServiceImpl) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*booking.Booking, error) {
	property, err := s.properties.GetProperty(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, client.ErrCollaboratorUnavailable) {
			return nil, fmt.Errorf("property lookup failed: %w", ErrUpstreamUnavailable)
		}
		return nil, err
	}

	b, err := booking.NewBooking(
		req.PropertyID,
		req.RequesterID,
		property.OwnerID,
		req.StartDate,
		req.EndDate,
		req.Guests,
		property.MaxGuests,
		property.NightlyRateCents,
		req.Comments,
	)
	if err != nil {
		return nil, err
	}

	if err := s.checkRemoteAvailability(ctx, req); err != nil {
		return nil, err
	}

	// Reserve the dates. The overlap re-check and the insert share one
	// transaction, so two concurrent requests for the same dates cannot
	// both commit.
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txRepo := s.repo.WithTx(tx)

		overlapping, err := txRepo.FindOverlapping(ctx, b.PropertyID, b.StartDate, b.EndDate)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return booking.ErrDateConflict{
				PropertyID:  b.PropertyID,
				ConflictIDs: bookingIDs(overlapping),
			}
		}

		return txRepo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	envelope, err := event.NewBookingRequested(b)
	if err != nil {
		s.compensateCreate(ctx, b.ID)
		return nil, err
	}

	if err := s.requestedProducer.Publish(ctx, envelope); err != nil {
		s.logger.Error("Failed to announce booking, rolling back local write",
			"booking_id", b.ID.String(),
			"error", err,
		)
		s.compensateCreate(ctx, b.ID)
		return nil, fmt.Errorf("failed to publish booking-requested event: %w", ErrBusUnavailable)
	}

	s.logger.Info("Booking created",
		"booking_id", b.ID.String(),
		"property_id", b.PropertyID.String(),
		"nights", b.Nights(),
	)

	return b, nil
}

// CancelBooking flips the booking to CANCELLED and announces the change.
// Only the requester or the property owner may cancel; anyone else gets
// ErrNotParticipant. Cancelling an already cancelled booking is a no-op. If
// the announcement fails the prior status is restored and ErrBusUnavailable
// is returned.
func (s *BookingServiceImpl) CancelBooking(ctx context.Context, id, userID uuid.UUID) (*booking.Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !b.CancellableBy(userID) {
		s.logger.Warn("Rejected cancellation by non-participant",
			"booking_id", id.String(),
			"user_id", userID.String(),
		)
		return nil, booking.ErrNotParticipant{BookingID: id, UserID: userID}
	}

	if b.Status == booking.StatusCancelled {
		return b, nil
	}
	if !b.Status.CanTransitionTo(booking.StatusCancelled) {
		return nil, booking.ErrIllegalTransition{
			BookingID: id,
			From:      b.Status,
			To:        booking.StatusCancelled,
		}
	}

	prior := b.Status
	if err := s.repo.UpdateStatus(ctx, id, booking.StatusCancelled); err != nil {
		return nil, err
	}

	envelope, err := event.NewStatusChanged(id, booking.StatusCancelled, userID)
	if err != nil {
		s.restoreStatus(ctx, id, prior)
		return nil, err
	}

	if err := s.statusProducer.Publish(ctx, envelope); err != nil {
		s.logger.Error("Failed to announce cancellation, restoring prior status",
			"booking_id", id.String(),
			"prior_status", string(prior),
			"error", err,
		)
		s.restoreStatus(ctx, id, prior)
		return nil, fmt.Errorf("failed to publish status-changed event: %w", ErrBusUnavailable)
	}

	b.Status = booking.StatusCancelled
	b.UpdatedAt = time.Now()

	s.logger.Info("Booking cancelled",
		"booking_id", id.String(),
		"updated_by", userID.String(),
	)

	return b, nil
}

// GetBooking retrieves a booking from the authoritative store
func (s *BookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

// checkRemoteAvailability consults the remote oracle when one is configured.
// An unreachable oracle refuses the request; "unknown" never means "free".
func (s *BookingServiceImpl) checkRemoteAvailability(ctx context.Context, req *CreateBookingRequest) error {
	if s.availability == nil {
		return nil
	}

	result, err := s.availability.CheckAvailable(ctx, req.PropertyID, req.StartDate, req.EndDate)
	if err != nil {
		return fmt.Errorf("availability check failed: %w", ErrUpstreamUnavailable)
	}
	if !result.Available {
		return booking.ErrDateConflict{
			PropertyID:  req.PropertyID,
			ConflictIDs: result.Conflicts,
		}
	}
	return nil
}

// compensateCreate removes a booking whose announcement never made it to the
// bus. A failure here leaves an orphan row and is logged loudly; the caller
// still sees the bus error.
func (s *BookingServiceImpl) compensateCreate(ctx context.Context, id uuid.UUID) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Compensating delete failed, booking row is orphaned",
			"booking_id", id.String(),
			"error", err,
		)
	}
}

func (s *BookingServiceImpl) restoreStatus(ctx context.Context, id uuid.UUID, status booking.Status) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Error("Failed to restore booking status after publish failure",
			"booking_id", id.String(),
			"status", string(status),
			"error", err,
		)
	}
}

func bookingIDs(bookings []*booking.Booking) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}
