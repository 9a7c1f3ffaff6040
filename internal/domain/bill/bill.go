package bill

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidWeight   = errors.New("collected weight must be positive")
	ErrMissingResident = errors.New("resident id is required")
)

// Status defines bill lifecycle states. Transitions are monotonic:
// due -> overdue -> paid, with cancellation allowed from due/overdue.
// paid and cancelled are absorbing.
type Status string

const (
	StatusDue       Status = "due"
	StatusOverdue   Status = "overdue"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s names a known bill status
func ValidStatus(s Status) bool {
	switch s {
	case StatusDue, StatusOverdue, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Bill represents one billable obligation for one resident. The amount is
// fixed at creation and never changes afterwards.
type Bill struct {
	ID                 uuid.UUID  `json:"id"`
	ResidentID         uuid.UUID  `json:"resident_id"`
	SourceCollectionID uuid.UUID  `json:"source_collection_id"`
	Title              string     `json:"title"`
	Amount             int64      `json:"amount"` // Stored in cents/minor units
	Currency           string     `json:"currency"`
	DueDate            time.Time  `json:"due_date"`
	Status             Status     `json:"status"`
	InvoiceNumber      string     `json:"invoice_number"`
	PaymentDate        *time.Time `json:"payment_date,omitempty"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	PaymentReference   string     `json:"payment_reference,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Pricing is the billing policy applied when a collection completes
type Pricing struct {
	RatePerKg   map[string]int64 // Minor units per kg, keyed by waste category
	DefaultRate int64            // Applied to categories missing from the table
	MinimumFee  int64            // Floor for the computed amount
	DueDays     int
	Currency    string
}

// Amount computes the billable amount for a collection, rounded to the
// smallest currency unit and floored at the minimum fee
func (p Pricing) Amount(wasteCategory string, weightKg float64) int64 {
	rate, ok := p.RatePerKg[strings.ToLower(wasteCategory)]
	if !ok {
		rate = p.DefaultRate
	}
	amount := int64(math.Round(float64(rate) * weightKg))
	if amount < p.MinimumFee {
		amount = p.MinimumFee
	}
	return amount
}

// NewBill creates the obligation for a completed collection
func NewBill(residentID, collectionID uuid.UUID, wasteCategory string, weightKg float64, pricing Pricing, invoiceNumber, createdBy string, now time.Time) (*Bill, error) {
	if residentID == uuid.Nil {
		return nil, ErrMissingResident
	}
	if weightKg <= 0 {
		return nil, ErrInvalidWeight
	}

	return &Bill{
		ID:                 uuid.New(),
		ResidentID:         residentID,
		SourceCollectionID: collectionID,
		Title:              fmt.Sprintf("Waste collection - %s", strings.ToLower(wasteCategory)),
		Amount:             pricing.Amount(wasteCategory, weightKg),
		Currency:           pricing.Currency,
		DueDate:            now.AddDate(0, 0, pricing.DueDays),
		Status:             StatusDue,
		InvoiceNumber:      invoiceNumber,
		Tags:               []string{strings.ToLower(wasteCategory)},
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// EffectiveStatus derives the status a reader should see at the given
// instant. A bill that is still recorded as due but whose due date has
// passed is effectively overdue; persistence of that transition is the
// caller's concern (see Repository.MarkOverdue).
func EffectiveStatus(b *Bill, now time.Time) Status {
	if b.Status == StatusDue && now.After(b.DueDate) {
		return StatusOverdue
	}
	return b.Status
}

// NewInvoiceNumber builds a display-opaque invoice number from the
// configured prefix, a truncated timestamp, and a random suffix. Callers
// must retry creation on a uniqueness collision.
func NewInvoiceNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:6])
	return fmt.Sprintf("%s-%d-%s", prefix, now.Unix()%100000000, suffix)
}
