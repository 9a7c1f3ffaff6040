package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines wallet persistence operations. Balance arithmetic
// happens in the database so a debit can never observe a stale balance:
// Debit is a guarded single-statement update, and LockForUpdate gives a
// transaction a stable read for the check-then-act paths that need one.
type Repository interface {
	// GetOrCreate returns the resident's wallet, creating an empty one on
	// first touch
	GetOrCreate(ctx context.Context, residentID uuid.UUID, currency string) (*Wallet, error)
	Get(ctx context.Context, residentID uuid.UUID) (*Wallet, error)

	// LockForUpdate acquires a row lock on the wallet for the duration of
	// the surrounding transaction
	LockForUpdate(ctx context.Context, residentID uuid.UUID) (*Wallet, error)

	// Credit increases the balance and returns the new value. Fails with
	// ErrInvalidAmount when amount <= 0.
	Credit(ctx context.Context, residentID uuid.UUID, amount int64) (int64, error)

	// Debit decreases the balance and returns the new value. The update
	// only applies when the balance covers the amount; otherwise
	// ErrInsufficientBalance is returned and nothing changes.
	Debit(ctx context.Context, residentID uuid.UUID, amount int64) (int64, error)

	AddEntry(ctx context.Context, entry *Entry) error

	// RecentHistory returns history entries newest first, truncated to limit
	RecentHistory(ctx context.Context, residentID uuid.UUID, limit int) ([]*Entry, error)

	WithTx(tx pgx.Tx) Repository
}
