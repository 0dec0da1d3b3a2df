package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roamstay-booking-ledger/internal/config"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/breaker"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaConsumer implements Consumer using Kafka. One consumer reads one topic
// for one consumer group; each service subscribes with its own group id so it
// keeps an independent offset. Delivery is at-least-once: a message is only
// committed after the handler returns without error, so a crash before commit
// redelivers it and handlers must be idempotent.
type KafkaConsumer struct {
	reader  *kafka.Reader
	breaker *breaker.Breaker
	logger  *slog.Logger
	topic   string
	groupID string
}

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, topic, groupID string, br *breaker.Breaker) *KafkaConsumer {
	return &KafkaConsumer{
		logger:  logger,
		breaker: br,
		topic:   topic,
		groupID: groupID,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset(cfg.StartOffset),
		}),
	}
}

// startOffset maps the configured value onto the offsets kafka-go accepts
// for a group without a committed offset. Anything other than LastOffset
// falls back to FirstOffset, so a misconfigured value never skips history.
func startOffset(v int64) int64 {
	if v == kafka.LastOffset {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}

// Subscribe starts consuming the topic and dispatching messages to the
// handler. Every dispatch runs through the circuit breaker, so a run of
// handler failures degrades to fast rejections instead of hammering a
// dependency that is already down.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Context canceled, stopping consumer",
					"topic", c.topic,
					"group_id", c.groupID,
				)
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					c.logger.Error("Failed to fetch message from Kafka",
						"topic", c.topic,
						"group_id", c.groupID,
						"error", err,
					)
					// If the context was canceled, return
					if ctx.Err() != nil {
						return
					}
					// Otherwise, wait a bit and try again
					time.Sleep(time.Second)
					continue
				}

				c.logger.Debug("Received message from Kafka",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"key", string(msg.Key),
				)

				processingErr := c.breaker.Execute(func() error {
					return handler(ctx, msg.Key, msg.Value)
				})
				if processingErr != nil {
					c.logger.Error("Failed to process message, will not commit offset",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"key", string(msg.Key),
						"error", processingErr,
					)
					// Back off while the breaker rejects dispatches outright
					if errors.Is(processingErr, breaker.ErrOpen) {
						time.Sleep(time.Second)
					}
					// Failed messages are not committed so redelivery can retry them
					continue
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Error("Failed to commit message after successful processing",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"key", string(msg.Key),
						"error", err,
					)
				} else {
					c.logger.Debug("Message committed successfully",
						"topic", msg.Topic,
						"offset", msg.Offset,
						"key", string(msg.Key),
					)
				}
			}
		}
	}()

	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
