// Package consumer adapts raw bus messages into projector work
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roamstay-booking-ledger/internal/domain/event"
	"github.com/roamstay-booking-ledger/internal/ledger_service/projector"
	"github.com/roamstay-booking-ledger/internal/ledger_service/service"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/producers"
)

// LedgerEventHandler handles incoming booking event messages from Kafka.
// Both topics route through the same handler; the envelope type decides what
// the projector does with the message.
type LedgerEventHandler struct {
	projectionService service.ProjectionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewLedgerEventHandler creates a new handler
func NewLedgerEventHandler(
	logger *slog.Logger,
	projectionService service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *LedgerEventHandler {
	return &LedgerEventHandler{
		projectionService: projectionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages. Permanently unprocessable messages
// go to the DLQ and are committed; transient failures return an error so the
// message is redelivered.
func (h *LedgerEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var envelope event.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return h.deadLetter(ctx, key, value, fmt.Sprintf("failed to unmarshal event envelope: %s", err.Error()), err)
	}

	h.logger.Debug("Received booking event",
		"booking_id", envelope.BookingID.String(),
		"type", envelope.Type,
	)

	if err := h.projectionService.Apply(ctx, &envelope); err != nil {
		if errors.Is(err, projector.ErrUnprocessable) {
			return h.deadLetter(ctx, key, value, err.Error(), err)
		}
		h.logger.Error("Failed to project booking event",
			"booking_id", envelope.BookingID.String(),
			"type", envelope.Type,
			"error", err,
		)
		return fmt.Errorf("projecting event for booking %s failed: %w", envelope.BookingID.String(), err)
	}

	return nil
}

// deadLetter parks an unprocessable message on the DLQ. When no DLQ is
// configured the original error is returned and the message stays on the
// topic for inspection.
func (h *LedgerEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, original error) error {
	h.logger.Error("Unprocessable message",
		"message_key", string(key),
		"reason", reason,
	)

	if h.producer == nil {
		return original
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", original,
			"message_key", string(key),
		)
		return original
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
