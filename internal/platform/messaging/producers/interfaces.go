package producers

import (
	"context"

	"github.com/roamstay-booking-ledger/internal/domain/event"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing booking event envelopes to a topic
type EventPublisher interface {
	Publish(ctx context.Context, envelope *event.Envelope) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
