// Package projector turns bus events into ledger entries. Two topics feed it
// with no cross-topic ordering guarantee, so a status event may arrive before
// the creation event for the same booking; the reconciliation here must
// converge to the same entry in every arrival order.
package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roamstay-booking-ledger/internal/domain/event"
	"github.com/roamstay-booking-ledger/internal/domain/ledger"
)

// ErrUnprocessable marks events no amount of redelivery can fix, such as an
// unknown type or a payload that does not decode. Callers route these to the
// dead letter queue instead of retrying.
var ErrUnprocessable = errors.New("event cannot be processed")

// Projector applies events to the ledger store
type Projector struct {
	repo   ledger.Repository
	logger *slog.Logger
}

// New creates a new projector
func New(logger *slog.Logger, repo ledger.Repository) *Projector {
	return &Projector{
		repo:   repo,
		logger: logger,
	}
}

// Apply routes an envelope to the reconciliation logic for its event type
func (p *Projector) Apply(ctx context.Context, envelope *event.Envelope) error {
	switch envelope.Type {
	case event.TypeBookingRequested:
		payload, err := envelope.DecodeBookingRequested()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnprocessable, err)
		}
		return p.applyRequested(ctx, payload)
	case event.TypeStatusChanged:
		payload, err := envelope.DecodeStatusChanged()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnprocessable, err)
		}
		return p.applyStatusChanged(ctx, payload)
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrUnprocessable, envelope.Type)
	}
}

// applyRequested records the descriptive booking data. If a status event got
// here first the entry exists as a placeholder; the creation data fills it in
// while the already-recorded status stands. A redelivered creation event for
// a full entry is a no-op.
func (p *Projector) applyRequested(ctx context.Context, payload *event.BookingRequested) error {
	existing, err := p.repo.GetByBookingID(ctx, payload.BookingID)
	if err != nil {
		if !errors.Is(err, ledger.ErrEntryNotFound{}) {
			return err
		}

		insertErr := p.repo.Insert(ctx, ledger.NewFromRequested(payload))
		if insertErr == nil {
			p.logger.Debug("Ledger entry created", "booking_id", payload.BookingID.String())
			return nil
		}
		if !errors.Is(insertErr, ledger.ErrDuplicateEntry{}) {
			return insertErr
		}

		// Lost the insert race to a concurrent consumer; reload and merge
		existing, err = p.repo.GetByBookingID(ctx, payload.BookingID)
		if err != nil {
			return err
		}
	}

	if !existing.Placeholder {
		p.logger.Debug("Ignoring duplicate creation event", "booking_id", payload.BookingID.String())
		return nil
	}

	existing.FillFromRequested(payload)
	if err := p.repo.Update(ctx, existing); err != nil {
		return err
	}

	p.logger.Info("Placeholder entry filled from creation event",
		"booking_id", payload.BookingID.String(),
		"status", string(existing.Status),
	)
	return nil
}

// applyStatusChanged records a status. With no entry yet the status is kept
// as a placeholder until the creation event arrives.
func (p *Projector) applyStatusChanged(ctx context.Context, payload *event.BookingStatusChanged) error {
	existing, err := p.repo.GetByBookingID(ctx, payload.BookingID)
	if err != nil {
		if !errors.Is(err, ledger.ErrEntryNotFound{}) {
			return err
		}

		placeholder := ledger.NewPlaceholder(payload.BookingID, payload.Status, payload.Timestamp)
		insertErr := p.repo.Insert(ctx, placeholder)
		if insertErr == nil {
			p.logger.Info("Placeholder entry created for early status event",
				"booking_id", payload.BookingID.String(),
				"status", string(payload.Status),
			)
			return nil
		}
		if !errors.Is(insertErr, ledger.ErrDuplicateEntry{}) {
			return insertErr
		}

		existing, err = p.repo.GetByBookingID(ctx, payload.BookingID)
		if err != nil {
			return err
		}
	}

	existing.ApplyStatus(payload.Status, payload.Timestamp)
	if err := p.repo.Update(ctx, existing); err != nil {
		return err
	}

	p.logger.Debug("Status applied to ledger entry",
		"booking_id", payload.BookingID.String(),
		"status", string(payload.Status),
	)
	return nil
}
