package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/roamstay-booking-ledger/internal/domain/event"
)

// WorkerPoolProjectionService fans envelope processing out to a bounded pool
// while keeping the consumer's submit-and-wait contract: Apply only returns
// once the wrapped service has run, so the offset commit upstream still means
// "this event is in the ledger".
type WorkerPoolProjectionService struct {
	baseService ProjectionService
	pool        *ants.Pool
	logger      *slog.Logger
	mu          sync.Mutex
	results     map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProjectionService(
	baseService ProjectionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProjectionService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProjectionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// Apply submits an envelope to the worker pool and waits for the result
func (s *WorkerPoolProjectionService) Apply(ctx context.Context, envelope *event.Envelope) error {
	s.logger.Debug("Submitting event to worker pool",
		"booking_id", envelope.BookingID.String(),
		"type", envelope.Type,
	)

	resultChan := make(chan error, 1)

	resultKey := envelope.BookingID.String() + "/" + envelope.Type
	s.mu.Lock()
	s.results[resultKey] = resultChan
	s.mu.Unlock()

	// Copy so the worker never shares the caller's envelope
	envelopeCopy := *envelope

	err := s.pool.Submit(func() {
		err := s.baseService.Apply(ctx, &envelopeCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, resultKey)
		close(resultChan)
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		delete(s.results, resultKey)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit event to worker pool",
			"booking_id", envelope.BookingID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProjectionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProjectionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProjectionService) Capacity() int {
	return s.pool.Cap()
}
