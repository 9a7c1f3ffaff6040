package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/domain/shared"
)

// Transaction is one immutable audit record of a money movement. It is the
// system's single source of truth for what moved, when, and why,
// independent of which ledger initiated the movement. Fields other than
// status are never modified after creation.
type Transaction struct {
	TransactionID      uuid.UUID          `json:"transaction_id" bson:"transaction_id"`
	ResidentID         uuid.UUID          `json:"resident_id" bson:"resident_id"`
	Direction          shared.Direction   `json:"direction" bson:"direction"`
	Amount             int64              `json:"amount" bson:"amount"` // Stored in cents/minor units
	Currency           string             `json:"currency" bson:"currency"`
	Note               string             `json:"note,omitempty" bson:"note,omitempty"`
	RefType            shared.RefType     `json:"ref_type" bson:"ref_type"`
	RefID              string             `json:"ref_id" bson:"ref_id"`
	WalletBalanceAfter *int64             `json:"wallet_balance_after,omitempty" bson:"wallet_balance_after,omitempty"`
	PaymentMethod      shared.PaymentMethod `json:"payment_method" bson:"payment_method"`
	Status             shared.AuditStatus `json:"status" bson:"status"`
	PaymentReference   string             `json:"payment_reference,omitempty" bson:"payment_reference,omitempty"`
	CorrelationID      string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
}
