// Package breaker wraps the circuit breaker that guards every interaction
// with the message bus. When the bus is unhealthy, callers fail fast with
// ErrOpen instead of hanging, which is what lets the booking coordinator run
// its compensating rollback immediately.
package breaker

import (
	"errors"
	"log/slog"

	"github.com/roamstay-booking-ledger/internal/config"
	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned when the breaker rejects a call without attempting it
var ErrOpen = errors.New("circuit breaker is open")

// Breaker guards an operation against a failing dependency. It trips after a
// configured number of consecutive failures, rejects calls while open, and
// closes again after enough consecutive successes during the half-open trial.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// New creates a breaker named after the operation it protects
func New(name string, cfg *config.CircuitBreakerConfig, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name: name,
		// In half-open, MaxRequests consecutive successes close the breaker
		MaxRequests: cfg.SuccessThreshold,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Execute runs fn through the breaker. A rejected call (open breaker, or
// half-open trial already saturated) returns ErrOpen; otherwise fn's own
// error is returned and counted against the breaker.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State returns the current breaker state name (closed, open, half-open)
func (b *Breaker) State() string {
	return b.cb.State().String()
}
