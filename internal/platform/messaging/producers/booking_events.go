package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roamstay-booking-ledger/internal/config"
	"github.com/roamstay-booking-ledger/internal/domain/event"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/breaker"
	"github.com/segmentio/kafka-go"
)

// BookingEventProducer publishes booking event envelopes to a single topic.
//
// Writes are synchronous with full acks: the booking saga's rollback edge
// depends on publish failures surfacing on the publishing call itself, so
// fire-and-forget writes are not an option here. The Hash balancer keys
// messages by booking id so per-booking order is preserved within this
// producer's stream.
type BookingEventProducer struct {
	logger  *slog.Logger
	writer  KafkaWriter // Interface for testability
	breaker *breaker.Breaker
	topic   string
	timeout time.Duration
}

// NewBookingEventProducer creates a producer for the given topic and ensures the topic exists
func NewBookingEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string, br *breaker.Breaker) (*BookingEventProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for booking event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for booking event producer: %w", topic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Same key -> same partition
		RequiredAcks: kafka.RequireAll,
		Async:        false, // The saga must observe publish failures
		WriteTimeout: cfg.PublishTimeout,
	}

	return &BookingEventProducer{
		logger:  logger,
		writer:  writer,
		breaker: br,
		topic:   topic,
		timeout: cfg.PublishTimeout,
	}, nil
}

// NewBookingEventProducerWithWriter builds a producer around an existing
// writer. Used by tests and by callers that manage topic creation themselves.
func NewBookingEventProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic string, timeout time.Duration, br *breaker.Breaker) *BookingEventProducer {
	return &BookingEventProducer{
		logger:  logger,
		writer:  writer,
		breaker: br,
		topic:   topic,
		timeout: timeout,
	}
}

// Publish sends the envelope through the circuit breaker, keyed by booking id.
// A breaker-open rejection comes back as breaker.ErrOpen without touching the
// bus; a timeout counts as failure, never as success.
func (p *BookingEventProducer) Publish(ctx context.Context, envelope *event.Envelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", envelope.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(envelope.Key()),
		Value: value,
	}

	err = p.breaker.Execute(func() error {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.writer.WriteMessages(writeCtx, msg)
	})
	if err != nil {
		p.logger.Error("Failed to publish booking event",
			"topic", p.topic,
			"type", envelope.Type,
			"booking_id", envelope.BookingID.String(),
			"breaker_state", p.breaker.State(),
			"error", err,
		)
		return fmt.Errorf("failed to publish %s to %s: %w", envelope.Type, p.topic, err)
	}

	p.logger.Debug("Published booking event",
		"topic", p.topic,
		"type", envelope.Type,
		"booking_id", envelope.BookingID.String(),
	)
	return nil
}

func (p *BookingEventProducer) Close() error {
	p.logger.Info("Closing booking event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
