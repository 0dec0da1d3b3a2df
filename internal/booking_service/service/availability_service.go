package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roamstay-booking-ledger/internal/domain/booking"
)

// AvailabilityServiceImpl answers availability questions from the
// authoritative bookings table. Only bookings whose status still holds the
// dates (pending or accepted) count; cancelled and completed ones do not.
type AvailabilityServiceImpl struct {
	repo   booking.Repository
	logger *slog.Logger
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(logger *slog.Logger, repo booking.Repository) *AvailabilityServiceImpl {
	return &AvailabilityServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

// Check reports whether the property is free for [start, end) and, when it is
// not, which bookings block it. A malformed range is a validation error, not
// an "unavailable" answer.
func (s *AvailabilityServiceImpl) Check(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*AvailabilityResult, error) {
	if !start.Before(end) {
		return nil, booking.ErrInvalidDateRange
	}

	blocking, err := s.repo.ListBlockingByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	var conflictIDs []uuid.UUID
	for _, b := range blocking {
		if b.OverlapsRange(start, end) {
			conflictIDs = append(conflictIDs, b.ID)
		}
	}

	s.logger.Debug("Availability check completed",
		"property_id", propertyID.String(),
		"conflicts", len(conflictIDs),
	)

	return &AvailabilityResult{
		Available:   len(conflictIDs) == 0,
		ConflictIDs: conflictIDs,
	}, nil
}
