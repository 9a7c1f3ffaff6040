package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocollect-billing/internal/domain/bill"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

const billColumnsPattern = `id, resident_id, source_collection_id, title, amount, currency, due_date, status,\s+invoice_number, payment_date, payment_method, payment_reference, tags, notes, created_by, created_at, updated_at`

func sampleBill() *bill.Bill {
	now := time.Now()
	return &bill.Bill{
		ID:                 uuid.New(),
		ResidentID:         uuid.New(),
		SourceCollectionID: uuid.New(),
		Title:              "Waste collection - general",
		Amount:             500,
		Currency:           "EUR",
		DueDate:            now.AddDate(0, 0, 14),
		Status:             bill.StatusDue,
		InvoiceNumber:      "WM-20260830-ABCDEF",
		Tags:               []string{"general"},
		CreatedBy:          "collection-processor",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func billRows(b *bill.Bill) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "resident_id", "source_collection_id", "title", "amount", "currency", "due_date", "status",
		"invoice_number", "payment_date", "payment_method", "payment_reference", "tags", "notes", "created_by", "created_at", "updated_at",
	}).AddRow(
		b.ID, b.ResidentID, b.SourceCollectionID, b.Title, b.Amount, b.Currency, b.DueDate, b.Status,
		b.InvoiceNumber, b.PaymentDate, b.PaymentMethod, b.PaymentReference, b.Tags, b.Notes, b.CreatedBy, b.CreatedAt, b.UpdatedAt,
	)
}

func TestBillRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	b := sampleBill()

	query := `INSERT INTO bills \(` + billColumnsPattern + `\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, \$14, \$15, \$16, \$17\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(b.ID, b.ResidentID, b.SourceCollectionID, b.Title, b.Amount, b.Currency, b.DueDate, b.Status,
				b.InvoiceNumber, b.PaymentDate, b.PaymentMethod, b.PaymentReference, b.Tags, b.Notes, b.CreatedBy, b.CreatedAt, b.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, b)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate collection", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(b.ID, b.ResidentID, b.SourceCollectionID, b.Title, b.Amount, b.Currency, b.DueDate, b.Status,
				b.InvoiceNumber, b.PaymentDate, b.PaymentMethod, b.PaymentReference, b.Tags, b.Notes, b.CreatedBy, b.CreatedAt, b.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: billsCollectionConstraint})

		err := repo.Create(ctx, b)
		assert.ErrorIs(t, err, bill.ErrDuplicateObligation{CollectionID: b.SourceCollectionID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate invoice number", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(b.ID, b.ResidentID, b.SourceCollectionID, b.Title, b.Amount, b.Currency, b.DueDate, b.Status,
				b.InvoiceNumber, b.PaymentDate, b.PaymentMethod, b.PaymentReference, b.Tags, b.Notes, b.CreatedBy, b.CreatedAt, b.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: billsInvoiceConstraint})

		err := repo.Create(ctx, b)
		assert.ErrorIs(t, err, bill.ErrDuplicateInvoiceNumber{InvoiceNumber: b.InvoiceNumber})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(b.ID, b.ResidentID, b.SourceCollectionID, b.Title, b.Amount, b.Currency, b.DueDate, b.Status,
				b.InvoiceNumber, b.PaymentDate, b.PaymentMethod, b.PaymentReference, b.Tags, b.Notes, b.CreatedBy, b.CreatedAt, b.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, b)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create bill")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	b := sampleBill()

	query := `SELECT ` + billColumnsPattern + `\s+FROM bills\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(b.ID).
			WillReturnRows(billRows(b))

		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, b.InvoiceNumber, got.InvoiceNumber)
		assert.Equal(t, b.Status, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(b.ID).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, b.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, bill.ErrBillNotFound{BillID: b.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_GetBySourceCollectionID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	b := sampleBill()

	query := `SELECT ` + billColumnsPattern + `\s+FROM bills\s+WHERE source_collection_id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(b.SourceCollectionID).
			WillReturnRows(billRows(b))

		got, err := repo.GetBySourceCollectionID(ctx, b.SourceCollectionID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no bill yet", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(b.SourceCollectionID).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetBySourceCollectionID(ctx, b.SourceCollectionID)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_ListByResident(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	b := sampleBill()

	t.Run("without status filter", func(t *testing.T) {
		query := `SELECT ` + billColumnsPattern + `\s+FROM bills\s+WHERE resident_id = \$1\s+ORDER BY due_date ASC`
		mock.ExpectQuery(query).
			WithArgs(b.ResidentID).
			WillReturnRows(billRows(b))

		got, err := repo.ListByResident(ctx, b.ResidentID, "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("with status filter", func(t *testing.T) {
		query := `SELECT ` + billColumnsPattern + `\s+FROM bills\s+WHERE resident_id = \$1\s+AND status = \$2 ORDER BY due_date ASC`
		mock.ExpectQuery(query).
			WithArgs(b.ResidentID, bill.StatusOverdue).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "resident_id", "source_collection_id", "title", "amount", "currency", "due_date", "status",
				"invoice_number", "payment_date", "payment_method", "payment_reference", "tags", "notes", "created_by", "created_at", "updated_at",
			}))

		got, err := repo.ListByResident(ctx, b.ResidentID, bill.StatusOverdue)
		assert.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_MarkOverdue(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	billID := uuid.New()

	query := `UPDATE bills\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND status = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(bill.StatusOverdue, billID, bill.StatusDue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkOverdue(ctx, billID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already transitioned affects zero rows", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(bill.StatusOverdue, billID, bill.StatusDue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkOverdue(ctx, billID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_MarkPaid(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	b := sampleBill()
	paidAt := time.Now()

	updateQuery := `UPDATE bills\s+SET status = \$1, payment_date = \$2, payment_method = \$3, payment_reference = \$4, updated_at = NOW\(\)\s+WHERE id = \$5 AND status IN \(\$6, \$7\)`
	getQuery := `SELECT ` + billColumnsPattern + `\s+FROM bills\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(updateQuery).
			WithArgs(bill.StatusPaid, paidAt, "wallet", "PAY-1", b.ID, bill.StatusDue, bill.StatusOverdue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkPaid(ctx, b.ID, "wallet", "PAY-1", paidAt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already paid", func(t *testing.T) {
		paid := sampleBill()
		paid.ID = b.ID
		paid.Status = bill.StatusPaid

		mock.ExpectExec(updateQuery).
			WithArgs(bill.StatusPaid, paidAt, "wallet", "PAY-1", b.ID, bill.StatusDue, bill.StatusOverdue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(getQuery).
			WithArgs(b.ID).
			WillReturnRows(billRows(paid))

		err := repo.MarkPaid(ctx, b.ID, "wallet", "PAY-1", paidAt)
		assert.ErrorIs(t, err, bill.ErrAlreadyPaid{BillID: b.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled", func(t *testing.T) {
		cancelled := sampleBill()
		cancelled.ID = b.ID
		cancelled.Status = bill.StatusCancelled

		mock.ExpectExec(updateQuery).
			WithArgs(bill.StatusPaid, paidAt, "wallet", "PAY-1", b.ID, bill.StatusDue, bill.StatusOverdue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(getQuery).
			WithArgs(b.ID).
			WillReturnRows(billRows(cancelled))

		err := repo.MarkPaid(ctx, b.ID, "wallet", "PAY-1", paidAt)
		assert.ErrorIs(t, err, bill.ErrBillCancelled{BillID: b.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_Cancel(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	b := sampleBill()

	query := `UPDATE bills\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND status IN \(\$3, \$4\)`
	getQuery := `SELECT ` + billColumnsPattern + `\s+FROM bills\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(bill.StatusCancelled, b.ID, bill.StatusDue, bill.StatusOverdue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Cancel(ctx, b.ID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already paid", func(t *testing.T) {
		paid := sampleBill()
		paid.ID = b.ID
		paid.Status = bill.StatusPaid

		mock.ExpectExec(query).
			WithArgs(bill.StatusCancelled, b.ID, bill.StatusDue, bill.StatusOverdue).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(getQuery).
			WithArgs(b.ID).
			WillReturnRows(billRows(paid))

		err := repo.Cancel(ctx, b.ID)
		assert.ErrorIs(t, err, bill.ErrAlreadyPaid{BillID: b.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_OutstandingBalance(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BillRepository{querier: mock, logger: logger}
	residentID := uuid.New()

	query := `SELECT COALESCE\(SUM\(amount\), 0\)\s+FROM bills\s+WHERE resident_id = \$1 AND status = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(residentID, bill.StatusOverdue).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(1500)))

		total, err := repo.OutstandingBalance(ctx, residentID)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(residentID, bill.StatusOverdue).
			WillReturnError(expectedErr)

		total, err := repo.OutstandingBalance(ctx, residentID)
		assert.Zero(t, total)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
