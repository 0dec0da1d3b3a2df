// Package service defines the processing surface of the ledger service
package service

import (
	"context"

	"github.com/roamstay-booking-ledger/internal/domain/event"
)

// ProjectionService applies one event envelope to the ledger
type ProjectionService interface {
	Apply(ctx context.Context, envelope *event.Envelope) error
}
