// Package mongo provides the MongoDB implementation of the audit log
// repository. The audit collection is append-only: records are inserted
// once and never updated or removed.
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

	"github.com/ecocollect-billing/internal/domain/audit"
)

const (
	// TransactionCollectionName is the name of the audit collection in MongoDB
	TransactionCollectionName = "audit_transactions"
)

// TransactionRepository implements the audit.Repository interface for MongoDB
type TransactionRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewTransactionRepository creates a new MongoDB audit repository
func NewTransactionRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new audit transaction after checking for duplicates.
// Returns ErrDuplicateTransaction if a record with the same transaction ID
// exists, which lets the outbox poller redeliver safely.
func (r *TransactionRepository) Create(ctx context.Context, txn *audit.Transaction) error {
	collection := r.db.Collection(TransactionCollectionName)

	existing, err := r.GetByTransactionID(ctx, txn.TransactionID)
	if err != nil && !errors.Is(err, audit.ErrTransactionNotFound{}) {
		r.logger.Error("Failed to check for existing audit transaction",
			"transaction_id", txn.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing audit transaction: %w", err)
	}

	if existing != nil {
		return audit.ErrDuplicateTransaction{TransactionID: txn.TransactionID}
	}

	_, err = collection.InsertOne(ctx, txn)
	if err != nil {
		r.logger.Error("Failed to create audit transaction",
			"transaction_id", txn.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create audit transaction: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves an audit transaction by its transaction ID.
// Returns ErrTransactionNotFound if no record exists.
func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*audit.Transaction, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var txn audit.Transaction
	err := collection.FindOne(ctx, filter).Decode(&txn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrTransactionNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get audit transaction",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit transaction: %w", err)
	}

	return &txn, nil
}

// ListByResident retrieves paginated audit transactions for a resident.
// Results are sorted by creation time in descending order (newest first).
func (r *TransactionRepository) ListByResident(ctx context.Context, residentID uuid.UUID, limit, offset int) ([]*audit.Transaction, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"resident_id": residentID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit transactions",
			"resident_id", residentID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list audit transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txns []*audit.Transaction
	if err := cursor.All(ctx, &txns); err != nil {
		r.logger.Error("Failed to decode audit transactions",
			"resident_id", residentID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit transactions: %w", err)
	}

	return txns, nil
}

// CountByResident counts the total number of audit transactions for a resident
func (r *TransactionRepository) CountByResident(ctx context.Context, residentID uuid.UUID) (int64, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"resident_id": residentID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count audit transactions",
			"resident_id", residentID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit transactions: %w", err)
	}

	return count, nil
}
