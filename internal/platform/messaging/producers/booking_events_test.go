package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roamstay-booking-ledger/internal/config"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/domain/event"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/breaker"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestBreaker() *breaker.Breaker {
	return breaker.New("test", &config.CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
	}, newTestLogger())
}

func statusEnvelope(t *testing.T) *event.Envelope {
	t.Helper()
	envelope, err := event.NewStatusChanged(uuid.New(), booking.StatusCancelled, uuid.New())
	require.NoError(t, err)
	return envelope
}

func TestBookingEventProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("success keys message by booking id", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		envelope := statusEnvelope(t)

		mockWriter.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			if string(msgs[0].Key) != envelope.BookingID.String() {
				return false
			}
			var decoded event.Envelope
			if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
				return false
			}
			return decoded.Type == event.TypeStatusChanged && decoded.BookingID == envelope.BookingID
		})).Return(nil)

		producer := NewBookingEventProducerWithWriter(newTestLogger(), mockWriter, "booking-status-changed", time.Second, newTestBreaker())

		err := producer.Publish(ctx, envelope)
		assert.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("write failure surfaces to the caller", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		writeErr := errors.New("broker unreachable")
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(writeErr)

		producer := NewBookingEventProducerWithWriter(newTestLogger(), mockWriter, "booking-requested", time.Second, newTestBreaker())

		err := producer.Publish(ctx, statusEnvelope(t))
		assert.Error(t, err)
		assert.ErrorIs(t, err, writeErr)
		mockWriter.AssertExpectations(t)
	})

	t.Run("open breaker rejects without touching the writer", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		writeErr := errors.New("broker unreachable")
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(writeErr).Times(3)

		br := newTestBreaker()
		producer := NewBookingEventProducerWithWriter(newTestLogger(), mockWriter, "booking-requested", time.Second, br)

		for i := 0; i < 3; i++ {
			assert.Error(t, producer.Publish(ctx, statusEnvelope(t)))
		}
		require.Equal(t, "open", br.State())

		err := producer.Publish(ctx, statusEnvelope(t))
		assert.ErrorIs(t, err, breaker.ErrOpen)

		// Exactly three writes happened; the fourth call never reached Kafka
		mockWriter.AssertExpectations(t)
	})
}

func TestBookingEventProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)

	producer := NewBookingEventProducerWithWriter(newTestLogger(), mockWriter, "booking-requested", time.Second, newTestBreaker())

	assert.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}
