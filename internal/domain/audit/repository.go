package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages audit transaction persistence. Records are appended
// once and listed newest first; there is no update or delete path.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	ListByResident(ctx context.Context, residentID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByResident(ctx context.Context, residentID uuid.UUID) (int64, error)
}

// ErrTransactionNotFound indicates missing audit transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "audit transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	// If the target TransactionID is empty, consider it a match for any ErrTransactionNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateTransaction indicates audit record uniqueness violation
type ErrDuplicateTransaction struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate audit transaction: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateTransaction
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
