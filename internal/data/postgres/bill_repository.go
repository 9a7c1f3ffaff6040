// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the billing and settlement system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/platform/persistence"
)

const (
	billsCollectionConstraint = "bills_source_collection_id_key"
	billsInvoiceConstraint    = "bills_invoice_number_key"
)

// uniqueViolation reports whether err is a violation of the named unique constraint
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

// BillRepository implements the bill.Repository interface for PostgreSQL
type BillRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBillRepository creates a new PostgreSQL bill repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBillRepository(logger *slog.Logger, db *persistence.PostgresDB) bill.Repository {
	return &BillRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls
func (r *BillRepository) WithTx(tx pgx.Tx) bill.Repository {
	return &BillRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const billColumns = `id, resident_id, source_collection_id, title, amount, currency, due_date, status,
		invoice_number, payment_date, payment_method, payment_reference, tags, notes, created_by, created_at, updated_at`

func scanBill(row pgx.Row) (*bill.Bill, error) {
	var b bill.Bill
	err := row.Scan(
		&b.ID,
		&b.ResidentID,
		&b.SourceCollectionID,
		&b.Title,
		&b.Amount,
		&b.Currency,
		&b.DueDate,
		&b.Status,
		&b.InvoiceNumber,
		&b.PaymentDate,
		&b.PaymentMethod,
		&b.PaymentReference,
		&b.Tags,
		&b.Notes,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create stores a new bill. A second bill for the same source collection
// fails with ErrDuplicateObligation; an invoice number collision fails
// with ErrDuplicateInvoiceNumber so the caller can retry with a new number.
func (r *BillRepository) Create(ctx context.Context, b *bill.Bill) error {
	query := `
		INSERT INTO bills (id, resident_id, source_collection_id, title, amount, currency, due_date, status,
			invoice_number, payment_date, payment_method, payment_reference, tags, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.ResidentID,
		b.SourceCollectionID,
		b.Title,
		b.Amount,
		b.Currency,
		b.DueDate,
		b.Status,
		b.InvoiceNumber,
		b.PaymentDate,
		b.PaymentMethod,
		b.PaymentReference,
		b.Tags,
		b.Notes,
		b.CreatedBy,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, billsCollectionConstraint) {
			return bill.ErrDuplicateObligation{CollectionID: b.SourceCollectionID}
		}
		if uniqueViolation(err, billsInvoiceConstraint) {
			return bill.ErrDuplicateInvoiceNumber{InvoiceNumber: b.InvoiceNumber}
		}
		r.logger.Error("Failed to create bill", "bill_id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill by its ID
func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE id = $1
	`

	b, err := scanBill(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bill.ErrBillNotFound{BillID: id}
		}
		r.logger.Error("Failed to get bill", "bill_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return b, nil
}

// GetBySourceCollectionID retrieves the bill generated for a collection.
// Returns nil, nil when no bill exists yet.
func (r *BillRepository) GetBySourceCollectionID(ctx context.Context, collectionID uuid.UUID) (*bill.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE source_collection_id = $1
	`

	b, err := scanBill(r.querier.QueryRow(ctx, query, collectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get bill by collection", "collection_id", collectionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get bill by collection: %w", err)
	}

	return b, nil
}

// ListByResident retrieves a resident's bills sorted by due date ascending,
// optionally filtered to a single status
func (r *BillRepository) ListByResident(ctx context.Context, residentID uuid.UUID, statusFilter bill.Status) ([]*bill.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE resident_id = $1
	`
	args := []interface{}{residentID}
	if statusFilter != "" {
		query += ` AND status = $2`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY due_date ASC`

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list bills", "resident_id", residentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*bill.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			r.logger.Error("Failed to scan bill", "error", err)
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over bills", "error", err)
		return nil, fmt.Errorf("error iterating over bills: %w", err)
	}

	return bills, nil
}

// MarkOverdue persists the lazy due -> overdue transition. The guard on the
// current status makes concurrent calls idempotent: whichever caller loses
// the race simply affects zero rows.
func (r *BillRepository) MarkOverdue(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bills
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	_, err := r.querier.Exec(ctx, query, bill.StatusOverdue, id, bill.StatusDue)
	if err != nil {
		r.logger.Error("Failed to mark bill overdue", "bill_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark bill overdue: %w", err)
	}

	return nil
}

// MarkPaid flips the bill to paid with a compare-and-set on status, so
// exactly one settlement can win. On zero rows affected the current status
// is re-read to report the precise reason.
func (r *BillRepository) MarkPaid(ctx context.Context, id uuid.UUID, method, reference string, paidAt time.Time) error {
	query := `
		UPDATE bills
		SET status = $1, payment_date = $2, payment_method = $3, payment_reference = $4, updated_at = NOW()
		WHERE id = $5 AND status IN ($6, $7)
	`

	result, err := r.querier.Exec(ctx, query, bill.StatusPaid, paidAt, method, reference, id, bill.StatusDue, bill.StatusOverdue)
	if err != nil {
		r.logger.Error("Failed to mark bill paid", "bill_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark bill paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if current.Status == bill.StatusCancelled {
			return bill.ErrBillCancelled{BillID: id}
		}
		return bill.ErrAlreadyPaid{BillID: id}
	}

	return nil
}

// Cancel moves a due or overdue bill to the cancelled terminal state
func (r *BillRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bills
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
	`

	result, err := r.querier.Exec(ctx, query, bill.StatusCancelled, id, bill.StatusDue, bill.StatusOverdue)
	if err != nil {
		r.logger.Error("Failed to cancel bill", "bill_id", id.String(), "error", err)
		return fmt.Errorf("failed to cancel bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if current.Status == bill.StatusPaid {
			return bill.ErrAlreadyPaid{BillID: id}
		}
		return bill.ErrBillCancelled{BillID: id}
	}

	return nil
}

// OutstandingBalance sums the amounts of overdue bills only
func (r *BillRepository) OutstandingBalance(ctx context.Context, residentID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM bills
		WHERE resident_id = $1 AND status = $2
	`

	var total int64
	err := r.querier.QueryRow(ctx, query, residentID, bill.StatusOverdue).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum outstanding balance", "resident_id", residentID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum outstanding balance: %w", err)
	}

	return total, nil
}
