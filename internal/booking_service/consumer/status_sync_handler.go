// Package consumer keeps the authoritative bookings table in step with
// status events emitted by external workflows, such as owner approvals.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/domain/event"
)

// StatusSyncHandler applies status-changed events to local bookings. Delivery
// is at-least-once, so every branch below must be safe to replay.
type StatusSyncHandler struct {
	repo   booking.Repository
	logger *slog.Logger
}

// NewStatusSyncHandler creates a new status sync handler
func NewStatusSyncHandler(logger *slog.Logger, repo booking.Repository) *StatusSyncHandler {
	return &StatusSyncHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleMessage processes one message from the status topic.
//
// A nil return commits the offset. Messages this service cannot ever apply,
// such as malformed payloads or events for unknown bookings, are logged and
// dropped rather than redelivered forever. Only infrastructure errors return
// non-nil so the message is retried.
func (h *StatusSyncHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var envelope event.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		h.logger.Error("Dropping unparseable message",
			"key", string(key),
			"error", err,
		)
		return nil
	}

	if envelope.Type != event.TypeStatusChanged {
		h.logger.Warn("Dropping message with unexpected type",
			"type", envelope.Type,
			"booking_id", envelope.BookingID.String(),
		)
		return nil
	}

	payload, err := envelope.DecodeStatusChanged()
	if err != nil {
		h.logger.Error("Dropping status event with invalid payload",
			"booking_id", envelope.BookingID.String(),
			"error", err,
		)
		return nil
	}

	newStatus, ok := booking.ParseStatus(string(payload.Status))
	if !ok {
		h.logger.Error("Dropping status event with unknown status",
			"booking_id", payload.BookingID.String(),
			"status", string(payload.Status),
		)
		return nil
	}

	b, err := h.repo.GetByID(ctx, payload.BookingID)
	if err != nil {
		var notFound booking.ErrBookingNotFound
		if errors.As(err, &notFound) {
			h.logger.Info("Dropping status event for unknown booking",
				"booking_id", payload.BookingID.String(),
				"status", string(newStatus),
			)
			return nil
		}
		return err
	}

	if b.Status == newStatus {
		return nil
	}

	// A stale or out-of-order event must not regress a booking that has
	// already moved past the announced status.
	if !b.Status.CanTransitionTo(newStatus) {
		h.logger.Warn("Ignoring status event that would be an illegal transition",
			"booking_id", b.ID.String(),
			"current_status", string(b.Status),
			"event_status", string(newStatus),
		)
		return nil
	}

	if err := h.repo.UpdateStatus(ctx, b.ID, newStatus); err != nil {
		var notFound booking.ErrBookingNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	h.logger.Info("Applied status event to booking",
		"booking_id", b.ID.String(),
		"from", string(b.Status),
		"to", string(newStatus),
	)

	return nil
}
