package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecocollect-billing/internal/domain/wallet"
	"github.com/ecocollect-billing/internal/platform/persistence"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.ResidentID,
		&w.Balance,
		&w.Currency,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate returns the resident's wallet, inserting an empty one when
// none exists. The upsert keeps first touch race-free: concurrent callers
// all land on the same row.
func (r *WalletRepository) GetOrCreate(ctx context.Context, residentID uuid.UUID, currency string) (*wallet.Wallet, error) {
	query := `
		INSERT INTO wallets (resident_id, balance, currency, created_at, updated_at)
		VALUES ($1, 0, $2, NOW(), NOW())
		ON CONFLICT (resident_id) DO UPDATE SET resident_id = EXCLUDED.resident_id
		RETURNING resident_id, balance, currency, created_at, updated_at
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, residentID, currency))
	if err != nil {
		r.logger.Error("Failed to get or create wallet", "resident_id", residentID.String(), "error", err)
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}

	return w, nil
}

// Get retrieves a wallet by resident ID
func (r *WalletRepository) Get(ctx context.Context, residentID uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT resident_id, balance, currency, created_at, updated_at
		FROM wallets
		WHERE resident_id = $1
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, residentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{ResidentID: residentID}
		}
		r.logger.Error("Failed to get wallet", "resident_id", residentID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// LockForUpdate acquires a row lock on the wallet, holding it until the
// surrounding transaction commits or rolls back. Only meaningful on a
// repository wrapped with WithTx.
func (r *WalletRepository) LockForUpdate(ctx context.Context, residentID uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT resident_id, balance, currency, created_at, updated_at
		FROM wallets
		WHERE resident_id = $1
		FOR UPDATE
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, residentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{ResidentID: residentID}
		}
		r.logger.Error("Failed to lock wallet", "resident_id", residentID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	return w, nil
}

// Credit increases the balance and returns the new value
func (r *WalletRepository) Credit(ctx context.Context, residentID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, wallet.ErrInvalidAmount
	}

	query := `
		UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE resident_id = $2
		RETURNING balance
	`

	var newBalance int64
	err := r.querier.QueryRow(ctx, query, amount, residentID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, wallet.ErrWalletNotFound{ResidentID: residentID}
		}
		r.logger.Error("Failed to credit wallet", "resident_id", residentID.String(), "error", err)
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}

	return newBalance, nil
}

// Debit decreases the balance and returns the new value. The balance guard
// is part of the update statement, so the check and the mutation are one
// atomic step and the balance can never go negative.
func (r *WalletRepository) Debit(ctx context.Context, residentID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, wallet.ErrInvalidAmount
	}

	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE resident_id = $2 AND balance >= $1
		RETURNING balance
	`

	var newBalance int64
	err := r.querier.QueryRow(ctx, query, amount, residentID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			w, getErr := r.Get(ctx, residentID)
			if getErr != nil {
				return 0, getErr
			}
			return 0, wallet.ErrInsufficientBalance{
				ResidentID: residentID,
				Balance:    w.Balance,
				Required:   amount,
			}
		}
		r.logger.Error("Failed to debit wallet", "resident_id", residentID.String(), "error", err)
		return 0, fmt.Errorf("failed to debit wallet: %w", err)
	}

	return newBalance, nil
}

// AddEntry appends a wallet history entry
func (r *WalletRepository) AddEntry(ctx context.Context, entry *wallet.Entry) error {
	query := `
		INSERT INTO wallet_entries (id, resident_id, direction, amount, note, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.ResidentID,
		entry.Direction,
		entry.Amount,
		entry.Note,
		entry.Reference,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add wallet entry", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to add wallet entry: %w", err)
	}

	return nil
}

// RecentHistory retrieves a resident's wallet entries, newest first
func (r *WalletRepository) RecentHistory(ctx context.Context, residentID uuid.UUID, limit int) ([]*wallet.Entry, error) {
	query := `
		SELECT id, resident_id, direction, amount, note, reference, created_at
		FROM wallet_entries
		WHERE resident_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, residentID, limit)
	if err != nil {
		r.logger.Error("Failed to list wallet entries", "resident_id", residentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []*wallet.Entry
	for rows.Next() {
		var e wallet.Entry
		err := rows.Scan(
			&e.ID,
			&e.ResidentID,
			&e.Direction,
			&e.Amount,
			&e.Note,
			&e.Reference,
			&e.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan wallet entry", "error", err)
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over wallet entries", "error", err)
		return nil, fmt.Errorf("error iterating over wallet entries: %w", err)
	}

	return entries, nil
}
