package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/domain/wallet"
)

const walletColumns = `resident_id, balance, currency, created_at, updated_at`

func walletRows(residentID uuid.UUID, balance int64) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"resident_id", "balance", "currency", "created_at", "updated_at"}).
		AddRow(residentID, balance, "EUR", now, now)
}

func TestWalletRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `INSERT INTO wallets \(resident_id, balance, currency, created_at, updated_at\)\s+VALUES \(\$1, 0, \$2, NOW\(\), NOW\(\)\)\s+ON CONFLICT \(resident_id\) DO UPDATE SET resident_id = EXCLUDED\.resident_id\s+RETURNING ` + walletColumns

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(residentID, "EUR").
			WillReturnRows(walletRows(residentID, 0))

		w, err := repo.GetOrCreate(ctx, residentID, "EUR")
		require.NoError(t, err)
		assert.Equal(t, residentID, w.ResidentID)
		assert.Zero(t, w.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(residentID, "EUR").
			WillReturnError(expectedErr)

		w, err := repo.GetOrCreate(ctx, residentID, "EUR")
		assert.Nil(t, w)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Get(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `SELECT ` + walletColumns + `\s+FROM wallets\s+WHERE resident_id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(residentID).
			WillReturnRows(walletRows(residentID, 750))

		w, err := repo.Get(ctx, residentID)
		require.NoError(t, err)
		assert.Equal(t, int64(750), w.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(residentID).
			WillReturnError(pgx.ErrNoRows)

		w, err := repo.Get(ctx, residentID)
		assert.Nil(t, w)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{ResidentID: residentID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `SELECT ` + walletColumns + `\s+FROM wallets\s+WHERE resident_id = \$1\s+FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(residentID).
			WillReturnRows(walletRows(residentID, 200))

		w, err := repo.LockForUpdate(ctx, residentID)
		require.NoError(t, err)
		assert.Equal(t, int64(200), w.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(residentID).
			WillReturnError(pgx.ErrNoRows)

		w, err := repo.LockForUpdate(ctx, residentID)
		assert.Nil(t, w)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{ResidentID: residentID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Credit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `UPDATE wallets\s+SET balance = balance \+ \$1, updated_at = NOW\(\)\s+WHERE resident_id = \$2\s+RETURNING balance`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(250), residentID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(350)))

		newBalance, err := repo.Credit(ctx, residentID, 250)
		require.NoError(t, err)
		assert.Equal(t, int64(350), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, err := repo.Credit(ctx, residentID, 0)
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("wallet missing", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(250), residentID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Credit(ctx, residentID, 250)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{ResidentID: residentID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Debit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `UPDATE wallets\s+SET balance = balance - \$1, updated_at = NOW\(\)\s+WHERE resident_id = \$2 AND balance >= \$1\s+RETURNING balance`
	getQuery := `SELECT ` + walletColumns + `\s+FROM wallets\s+WHERE resident_id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(200), residentID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(300)))

		newBalance, err := repo.Debit(ctx, residentID, 200)
		require.NoError(t, err)
		assert.Equal(t, int64(300), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, err := repo.Debit(ctx, residentID, -5)
		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		// Guarded update affects no row, so the balance is re-read for the error detail
		mock.ExpectQuery(query).
			WithArgs(int64(500), residentID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(getQuery).
			WithArgs(residentID).
			WillReturnRows(walletRows(residentID, 100))

		_, err := repo.Debit(ctx, residentID, 500)
		var insufficientErr wallet.ErrInsufficientBalance
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, int64(100), insufficientErr.Balance)
		assert.Equal(t, int64(500), insufficientErr.Required)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wallet missing", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(500), residentID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(getQuery).
			WithArgs(residentID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Debit(ctx, residentID, 500)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{ResidentID: residentID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_AddEntry(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}

	entry := &wallet.Entry{
		ID:         uuid.New(),
		ResidentID: uuid.New(),
		Direction:  shared.DirectionDebit,
		Amount:     200,
		Note:       "Bill payment",
		Reference:  "PAY-1",
		CreatedAt:  time.Now(),
	}

	query := `INSERT INTO wallet_entries \(id, resident_id, direction, amount, note, reference, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(entry.ID, entry.ResidentID, entry.Direction, entry.Amount, entry.Note, entry.Reference, entry.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.AddEntry(ctx, entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(entry.ID, entry.ResidentID, entry.Direction, entry.Amount, entry.Note, entry.Reference, entry.CreatedAt).
			WillReturnError(expectedErr)

		err := repo.AddEntry(ctx, entry)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_RecentHistory(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &WalletRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `SELECT id, resident_id, direction, amount, note, reference, created_at\s+FROM wallet_entries\s+WHERE resident_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		rows := pgxmock.NewRows([]string{"id", "resident_id", "direction", "amount", "note", "reference", "created_at"}).
			AddRow(uuid.New(), residentID, shared.DirectionCredit, int64(500), "Top-up via card", "", now).
			AddRow(uuid.New(), residentID, shared.DirectionDebit, int64(200), "Bill payment", "PAY-1", now.Add(-time.Hour))

		mock.ExpectQuery(query).
			WithArgs(residentID, 20).
			WillReturnRows(rows)

		entries, err := repo.RecentHistory(ctx, residentID, 20)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, shared.DirectionCredit, entries[0].Direction)
		assert.Equal(t, int64(200), entries[1].Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(residentID, 20).
			WillReturnError(expectedErr)

		entries, err := repo.RecentHistory(ctx, residentID, 20)
		assert.Nil(t, entries)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
