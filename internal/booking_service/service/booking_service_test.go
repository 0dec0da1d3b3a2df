package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roamstay-booking-ledger/internal/booking_service/client"
	"github.com/roamstay-booking-ledger/internal/domain/booking"
	"github.com/roamstay-booking-ledger/internal/domain/event"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTxRunner runs the transactional function directly; the repository mock
// stands in for both the pooled and the transactional repository.
type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListBlockingByProperty(ctx context.Context, propertyID uuid.UUID) ([]*booking.Booking, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindOverlapping(ctx context.Context, propertyID uuid.UUID, start, end time.Time) ([]*booking.Booking, error) {
	args := m.Called(ctx, propertyID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	m.Called(tx)
	return m
}

type MockPropertyClient struct {
	mock.Mock
}

func (m *MockPropertyClient) GetProperty(ctx context.Context, id uuid.UUID) (*client.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Property), args.Error(1)
}

type MockAvailabilityClient struct {
	mock.Mock
}

func (m *MockAvailabilityClient) CheckAvailable(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*client.AvailabilityResult, error) {
	args := m.Called(ctx, propertyID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.AvailabilityResult), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, envelope *event.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type sagaFixture struct {
	repo         *MockBookingRepository
	properties   *MockPropertyClient
	availability *MockAvailabilityClient
	requested    *MockEventPublisher
	status       *MockEventPublisher
	service      *BookingServiceImpl
}

func newSagaFixture(withRemoteOracle bool) *sagaFixture {
	f := &sagaFixture{
		repo:       new(MockBookingRepository),
		properties: new(MockPropertyClient),
		requested:  new(MockEventPublisher),
		status:     new(MockEventPublisher),
	}

	var availability client.AvailabilityClient
	if withRemoteOracle {
		f.availability = new(MockAvailabilityClient)
		availability = f.availability
	}

	f.service = NewBookingService(newTestLogger(), &fakeTxRunner{}, f.repo, f.properties, availability, f.requested, f.status)
	return f
}

func validRequest() *CreateBookingRequest {
	start := time.Now().UTC().AddDate(0, 0, 10).Truncate(24 * time.Hour)
	return &CreateBookingRequest{
		PropertyID:  uuid.New(),
		RequesterID: uuid.New(),
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 3),
		Guests:      2,
		Comments:    "late arrival",
	}
}

func propertyFor(req *CreateBookingRequest) *client.Property {
	return &client.Property{
		ID:               req.PropertyID,
		OwnerID:          uuid.New(),
		NightlyRateCents: 5000,
		MaxGuests:        4,
	}
}

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("success reserves dates and announces the booking", func(t *testing.T) {
		f := newSagaFixture(false)
		req := validRequest()
		prop := propertyFor(req)

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).Return(prop, nil)
		f.repo.On("WithTx", mock.Anything).Return()
		f.repo.On("FindOverlapping", mock.Anything, req.PropertyID, req.StartDate, req.EndDate).Return([]*booking.Booking{}, nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.requested.On("Publish", mock.Anything, mock.MatchedBy(func(e *event.Envelope) bool {
			return e.Type == event.TypeBookingRequested
		})).Return(nil)

		b, err := f.service.CreateBooking(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, booking.StatusPending, b.Status)
		assert.Equal(t, prop.OwnerID, b.OwnerID)
		assert.Equal(t, int64(15000), b.TotalPriceCents)

		f.repo.AssertExpectations(t)
		f.requested.AssertExpectations(t)
		f.status.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("validation failure stops before any write", func(t *testing.T) {
		f := newSagaFixture(false)
		req := validRequest()
		req.Guests = 10 // above the property's capacity
		prop := propertyFor(req)

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).Return(prop, nil)

		_, err := f.service.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, booking.ErrTooManyGuests)

		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.requested.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("unknown property maps to not found", func(t *testing.T) {
		f := newSagaFixture(false)
		req := validRequest()

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).
			Return(nil, client.ErrPropertyNotFound{PropertyID: req.PropertyID})

		_, err := f.service.CreateBooking(ctx, req)
		var notFound client.ErrPropertyNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("unreachable property service fails closed", func(t *testing.T) {
		f := newSagaFixture(false)
		req := validRequest()

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).
			Return(nil, fmt.Errorf("timeout: %w", client.ErrCollaboratorUnavailable))

		_, err := f.service.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)

		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("in-transaction overlap aborts with the conflicting ids", func(t *testing.T) {
		f := newSagaFixture(false)
		req := validRequest()
		prop := propertyFor(req)
		blocking := &booking.Booking{ID: uuid.New(), PropertyID: req.PropertyID, Status: booking.StatusAccepted}

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).Return(prop, nil)
		f.repo.On("WithTx", mock.Anything).Return()
		f.repo.On("FindOverlapping", mock.Anything, req.PropertyID, req.StartDate, req.EndDate).
			Return([]*booking.Booking{blocking}, nil)

		_, err := f.service.CreateBooking(ctx, req)
		var conflict booking.ErrDateConflict
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []uuid.UUID{blocking.ID}, conflict.ConflictIDs)

		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.requested.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("publish failure deletes the booking and reports the bus outage", func(t *testing.T) {
		f := newSagaFixture(false)
		req := validRequest()
		prop := propertyFor(req)

		var createdID uuid.UUID
		f.properties.On("GetProperty", mock.Anything, req.PropertyID).Return(prop, nil)
		f.repo.On("WithTx", mock.Anything).Return()
		f.repo.On("FindOverlapping", mock.Anything, req.PropertyID, req.StartDate, req.EndDate).Return([]*booking.Booking{}, nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*booking.Booking")).
			Run(func(args mock.Arguments) {
				createdID = args.Get(1).(*booking.Booking).ID
			}).Return(nil)
		f.requested.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unreachable"))
		f.repo.On("Delete", mock.Anything, mock.MatchedBy(func(id uuid.UUID) bool {
			return id == createdID
		})).Return(nil)

		_, err := f.service.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, ErrBusUnavailable)

		f.repo.AssertExpectations(t)
	})

	t.Run("remote oracle conflict refuses before the transaction", func(t *testing.T) {
		f := newSagaFixture(true)
		req := validRequest()
		prop := propertyFor(req)
		conflictID := uuid.New()

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).Return(prop, nil)
		f.availability.On("CheckAvailable", mock.Anything, req.PropertyID, req.StartDate, req.EndDate).
			Return(&client.AvailabilityResult{Available: false, Conflicts: []uuid.UUID{conflictID}}, nil)

		_, err := f.service.CreateBooking(ctx, req)
		var conflict booking.ErrDateConflict
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []uuid.UUID{conflictID}, conflict.ConflictIDs)

		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unreachable oracle never means available", func(t *testing.T) {
		f := newSagaFixture(true)
		req := validRequest()
		prop := propertyFor(req)

		f.properties.On("GetProperty", mock.Anything, req.PropertyID).Return(prop, nil)
		f.availability.On("CheckAvailable", mock.Anything, req.PropertyID, req.StartDate, req.EndDate).
			Return(nil, fmt.Errorf("timeout: %w", client.ErrCollaboratorUnavailable))

		_, err := f.service.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)

		f.repo.AssertNotCalled(t, "FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	pendingBooking := func() *booking.Booking {
		return &booking.Booking{
			ID:          uuid.New(),
			PropertyID:  uuid.New(),
			RequesterID: userID,
			OwnerID:     uuid.New(),
			Status:      booking.StatusPending,
		}
	}

	t.Run("cancels a pending booking and announces the change", func(t *testing.T) {
		f := newSagaFixture(false)
		b := pendingBooking()

		f.repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
		f.repo.On("UpdateStatus", mock.Anything, b.ID, booking.StatusCancelled).Return(nil)
		f.status.On("Publish", mock.Anything, mock.MatchedBy(func(e *event.Envelope) bool {
			if e.Type != event.TypeStatusChanged || e.BookingID != b.ID {
				return false
			}
			payload, err := e.DecodeStatusChanged()
			return err == nil && payload.Status == booking.StatusCancelled && payload.UpdatedBy == userID
		})).Return(nil)

		got, err := f.service.CancelBooking(ctx, b.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, got.Status)

		f.repo.AssertExpectations(t)
		f.status.AssertExpectations(t)
	})

	t.Run("the property owner may cancel", func(t *testing.T) {
		f := newSagaFixture(false)
		b := pendingBooking()
		b.RequesterID = uuid.New()
		b.OwnerID = userID

		f.repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
		f.repo.On("UpdateStatus", mock.Anything, b.ID, booking.StatusCancelled).Return(nil)
		f.status.On("Publish", mock.Anything, mock.Anything).Return(nil)

		got, err := f.service.CancelBooking(ctx, b.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, got.Status)
	})

	t.Run("a non-participant cannot cancel", func(t *testing.T) {
		f := newSagaFixture(false)
		b := pendingBooking()
		stranger := uuid.New()

		f.repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

		_, err := f.service.CancelBooking(ctx, b.ID, stranger)
		var notParticipant booking.ErrNotParticipant
		require.ErrorAs(t, err, &notParticipant)
		assert.Equal(t, b.ID, notParticipant.BookingID)
		assert.Equal(t, stranger, notParticipant.UserID)

		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		f.status.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("cancelling twice is a no-op", func(t *testing.T) {
		f := newSagaFixture(false)
		b := pendingBooking()
		b.Status = booking.StatusCancelled

		f.repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

		got, err := f.service.CancelBooking(ctx, b.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, got.Status)

		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		f.status.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("completed bookings cannot be cancelled", func(t *testing.T) {
		f := newSagaFixture(false)
		b := pendingBooking()
		b.Status = booking.StatusCompleted

		f.repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

		_, err := f.service.CancelBooking(ctx, b.ID, userID)
		var illegal booking.ErrIllegalTransition
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, booking.StatusCompleted, illegal.From)
	})

	t.Run("publish failure restores the prior status", func(t *testing.T) {
		f := newSagaFixture(false)
		b := pendingBooking()

		f.repo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
		f.repo.On("UpdateStatus", mock.Anything, b.ID, booking.StatusCancelled).Return(nil).Once()
		f.status.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unreachable"))
		f.repo.On("UpdateStatus", mock.Anything, b.ID, booking.StatusPending).Return(nil).Once()

		_, err := f.service.CancelBooking(ctx, b.ID, userID)
		assert.ErrorIs(t, err, ErrBusUnavailable)

		f.repo.AssertExpectations(t)
	})

	t.Run("unknown booking maps to not found", func(t *testing.T) {
		f := newSagaFixture(false)
		id := uuid.New()

		f.repo.On("GetByID", mock.Anything, id).Return(nil, booking.ErrBookingNotFound{BookingID: id})

		_, err := f.service.CancelBooking(ctx, id, userID)
		var notFound booking.ErrBookingNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}
