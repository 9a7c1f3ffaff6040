package shared

import (
	"time"

	"github.com/google/uuid"
)

// Deduction is one non-external funding line of a settlement (a redeemed
// reward or a wallet debit)
type Deduction struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"` // Stored in cents/minor units
}

// PaymentReceipt is the Kafka message published after a successful
// settlement. The notification service consumes it fire-and-forget; it is
// informational only and never read back by this system.
type PaymentReceipt struct {
	Reference     string      `json:"reference"`
	ResidentID    uuid.UUID   `json:"resident_id"`
	BillIDs       []uuid.UUID `json:"bill_ids"`
	TotalBilled   int64       `json:"total_billed"`
	Deductions    []Deduction `json:"deductions"`
	TotalPaid     int64       `json:"total_paid"`
	PaymentMethod string      `json:"payment_method"`
	PaidAt        time.Time   `json:"paid_at"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}
