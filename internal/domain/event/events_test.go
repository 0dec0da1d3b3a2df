package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamstay-booking-ledger/internal/domain/booking"
)

func TestNewBookingRequested(t *testing.T) {
	b := &booking.Booking{
		ID:              uuid.New(),
		PropertyID:      uuid.New(),
		RequesterID:     uuid.New(),
		OwnerID:         uuid.New(),
		StartDate:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		Guests:          2,
		TotalPriceCents: 15000,
		Status:          booking.StatusPending,
		Comments:        "ground floor please",
		CreatedAt:       time.Now().UTC(),
	}

	envelope, err := NewBookingRequested(b)
	require.NoError(t, err)

	assert.Equal(t, TypeBookingRequested, envelope.Type)
	assert.Equal(t, b.ID, envelope.BookingID)
	assert.Equal(t, b.ID.String(), envelope.Key())

	payload, err := envelope.DecodeBookingRequested()
	require.NoError(t, err)
	assert.Equal(t, b.ID, payload.BookingID)
	assert.Equal(t, b.PropertyID, payload.PropertyID)
	assert.Equal(t, b.TotalPriceCents, payload.TotalPriceCents)
	assert.Equal(t, b.Status, payload.Status)
	assert.Equal(t, b.Comments, payload.Comments)
}

func TestNewStatusChanged(t *testing.T) {
	bookingID := uuid.New()
	updatedBy := uuid.New()

	envelope, err := NewStatusChanged(bookingID, booking.StatusCancelled, updatedBy)
	require.NoError(t, err)

	assert.Equal(t, TypeStatusChanged, envelope.Type)
	assert.Equal(t, bookingID, envelope.BookingID)

	payload, err := envelope.DecodeStatusChanged()
	require.NoError(t, err)
	assert.Equal(t, bookingID, payload.BookingID)
	assert.Equal(t, booking.StatusCancelled, payload.Status)
	assert.Equal(t, updatedBy, payload.UpdatedBy)
	assert.False(t, payload.Timestamp.IsZero())
}

func TestEnvelope_DecodeTypeMismatch(t *testing.T) {
	envelope, err := NewStatusChanged(uuid.New(), booking.StatusAccepted, uuid.New())
	require.NoError(t, err)

	_, err = envelope.DecodeBookingRequested()
	assert.Error(t, err)
}

func TestEnvelope_WireRoundTrip(t *testing.T) {
	original, err := NewStatusChanged(uuid.New(), booking.StatusAccepted, uuid.New())
	require.NoError(t, err)

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, original.Type, decoded.Type)
	assert.Equal(t, original.BookingID, decoded.BookingID)

	payload, err := decoded.DecodeStatusChanged()
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAccepted, payload.Status)
}
