package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roamstay-booking-ledger/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the booking ledger collection in MongoDB
	LedgerCollectionName = "booking_ledger"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB.
// A unique index on booking_id turns concurrent first-inserts for the same
// booking into a duplicate-key error the projector resolves as an update.
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique booking_id index the projector relies on
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(LedgerCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create booking_id index: %w", err)
	}
	return nil
}

// GetByBookingID retrieves a ledger entry by its booking ID.
// Returns ErrEntryNotFound if no entry exists for the given booking.
func (r *LedgerRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"booking_id": bookingID}
	var entry ledger.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{BookingID: bookingID}
		}
		r.logger.Error("Failed to get ledger entry",
			"booking_id", bookingID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// Insert stores a new ledger entry. A duplicate-key violation on booking_id
// maps to ErrDuplicateEntry so callers can fall back to an update.
func (r *LedgerRepository) Insert(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicateEntry{BookingID: entry.BookingID}
		}
		r.logger.Error("Failed to insert ledger entry",
			"booking_id", entry.BookingID.String(),
			"error", err)
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

// Update replaces the stored entry for entry.BookingID.
// Returns ErrEntryNotFound if the entry doesn't exist.
func (r *LedgerRepository) Update(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"booking_id": entry.BookingID}
	result, err := collection.ReplaceOne(ctx, filter, entry)
	if err != nil {
		r.logger.Error("Failed to update ledger entry",
			"booking_id", entry.BookingID.String(),
			"error", err)
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	if result.MatchedCount == 0 {
		return ledger.ErrEntryNotFound{BookingID: entry.BookingID}
	}

	return nil
}

// ListByProperty retrieves paginated ledger entries for a property.
// Results are sorted by creation time in descending order (newest first).
func (r *LedgerRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"property_id": propertyID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger entries",
			"property_id", propertyID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"property_id", propertyID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}
