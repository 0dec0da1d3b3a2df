package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func futureDate(daysAhead int) time.Time {
	return time.Now().UTC().AddDate(0, 0, daysAhead).Truncate(24 * time.Hour)
}

func TestNewBooking(t *testing.T) {
	propertyID := uuid.New()
	requesterID := uuid.New()
	ownerID := uuid.New()

	t.Run("success", func(t *testing.T) {
		start := futureDate(10)
		end := futureDate(13)

		b, err := NewBooking(propertyID, requesterID, ownerID, start, end, 2, 4, 5000, "late arrival")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, b.ID)
		assert.Equal(t, propertyID, b.PropertyID)
		assert.Equal(t, requesterID, b.RequesterID)
		assert.Equal(t, ownerID, b.OwnerID)
		assert.Equal(t, StatusPending, b.Status)
		assert.Equal(t, 3, b.Nights())
		assert.Equal(t, int64(15000), b.TotalPriceCents)
		assert.Equal(t, "late arrival", b.Comments)
	})

	t.Run("end date not after start date", func(t *testing.T) {
		start := futureDate(10)

		_, err := NewBooking(propertyID, requesterID, ownerID, start, start, 2, 4, 5000, "")
		assert.ErrorIs(t, err, ErrInvalidDateRange)

		_, err = NewBooking(propertyID, requesterID, ownerID, start, futureDate(9), 2, 4, 5000, "")
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("start date in the past", func(t *testing.T) {
		start := time.Now().UTC().AddDate(0, 0, -1)
		end := futureDate(3)

		_, err := NewBooking(propertyID, requesterID, ownerID, start, end, 2, 4, 5000, "")
		assert.ErrorIs(t, err, ErrStartDateInPast)
	})

	t.Run("start date today is allowed", func(t *testing.T) {
		start := time.Now().UTC()
		end := futureDate(2)

		_, err := NewBooking(propertyID, requesterID, ownerID, start, end, 2, 4, 5000, "")
		assert.NoError(t, err)
	})

	t.Run("non-positive guest count", func(t *testing.T) {
		_, err := NewBooking(propertyID, requesterID, ownerID, futureDate(10), futureDate(12), 0, 4, 5000, "")
		assert.ErrorIs(t, err, ErrInvalidGuestCount)

		_, err = NewBooking(propertyID, requesterID, ownerID, futureDate(10), futureDate(12), -1, 4, 5000, "")
		assert.ErrorIs(t, err, ErrInvalidGuestCount)
	})

	t.Run("guest count above capacity", func(t *testing.T) {
		_, err := NewBooking(propertyID, requesterID, ownerID, futureDate(10), futureDate(12), 5, 4, 5000, "")
		assert.ErrorIs(t, err, ErrTooManyGuests)
	})

	t.Run("unknown capacity skips the guest cap", func(t *testing.T) {
		_, err := NewBooking(propertyID, requesterID, ownerID, futureDate(10), futureDate(12), 50, 0, 5000, "")
		assert.NoError(t, err)
	})

	t.Run("non-positive nightly rate", func(t *testing.T) {
		_, err := NewBooking(propertyID, requesterID, ownerID, futureDate(10), futureDate(12), 2, 4, 0, "")
		assert.ErrorIs(t, err, ErrInvalidRate)
	})
}

func TestBooking_OverlapsRange(t *testing.T) {
	b := &Booking{
		StartDate: futureDate(10),
		EndDate:   futureDate(15),
	}

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		overlaps bool
	}{
		{"identical range", futureDate(10), futureDate(15), true},
		{"fully inside", futureDate(11), futureDate(13), true},
		{"fully covering", futureDate(8), futureDate(20), true},
		{"overlaps start", futureDate(8), futureDate(11), true},
		{"overlaps end", futureDate(14), futureDate(18), true},
		{"ends exactly on booking start", futureDate(5), futureDate(10), false},
		{"starts exactly on booking end", futureDate(15), futureDate(20), false},
		{"entirely before", futureDate(1), futureDate(5), false},
		{"entirely after", futureDate(20), futureDate(25), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, b.OverlapsRange(tt.start, tt.end))
		})
	}
}
