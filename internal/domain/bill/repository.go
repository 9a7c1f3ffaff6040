package bill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines bill persistence operations
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetBySourceCollectionID(ctx context.Context, collectionID uuid.UUID) (*Bill, error)

	// ListByResident returns the resident's bills sorted by due date
	// ascending. statusFilter may be empty to return every status.
	ListByResident(ctx context.Context, residentID uuid.UUID, statusFilter Status) ([]*Bill, error)

	// MarkOverdue persists the lazy due -> overdue transition. It is a
	// no-op when the bill already left the due state, so concurrent
	// readers may both call it safely.
	MarkOverdue(ctx context.Context, id uuid.UUID) error

	// MarkPaid flips the bill to paid with a compare-and-set on status.
	// Returns ErrAlreadyPaid if another settlement won the race and
	// ErrBillCancelled if the bill was cancelled in the meantime.
	MarkPaid(ctx context.Context, id uuid.UUID, method, reference string, paidAt time.Time) error

	// Cancel moves a due or overdue bill to the cancelled terminal state
	Cancel(ctx context.Context, id uuid.UUID) error

	// OutstandingBalance sums the amounts of overdue bills only; bills
	// merely due are not counted for gating purposes.
	OutstandingBalance(ctx context.Context, residentID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrBillNotFound indicates missing bill
type ErrBillNotFound struct {
	BillID uuid.UUID
}

func (e ErrBillNotFound) Error() string {
	return "bill not found: " + e.BillID.String()
}

// ErrAlreadyPaid indicates the bill reached the paid terminal state before
// this operation could act on it
type ErrAlreadyPaid struct {
	BillID uuid.UUID
}

func (e ErrAlreadyPaid) Error() string {
	return "bill already paid: " + e.BillID.String()
}

// ErrBillCancelled indicates the bill was cancelled and can no longer be settled
type ErrBillCancelled struct {
	BillID uuid.UUID
}

func (e ErrBillCancelled) Error() string {
	return "bill cancelled: " + e.BillID.String()
}

// ErrDuplicateObligation indicates a bill already exists for the source
// collection. Callers generating bills treat this as already-handled, not
// as a failure to surface to the resident.
type ErrDuplicateObligation struct {
	CollectionID uuid.UUID
}

func (e ErrDuplicateObligation) Error() string {
	return "bill already exists for collection: " + e.CollectionID.String()
}

// ErrDuplicateInvoiceNumber indicates an invoice number collision; the
// generator retries with a fresh number
type ErrDuplicateInvoiceNumber struct {
	InvoiceNumber string
}

func (e ErrDuplicateInvoiceNumber) Error() string {
	return "invoice number already taken: " + e.InvoiceNumber
}

// ErrNotOwned indicates the bill belongs to another resident
type ErrNotOwned struct {
	BillID uuid.UUID
}

func (e ErrNotOwned) Error() string {
	return "bill belongs to another resident: " + e.BillID.String()
}
