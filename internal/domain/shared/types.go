package shared

// Direction defines which way money moved from the resident's perspective
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// PaymentMethod defines the funding sources a settlement can draw on
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodReward PaymentMethod = "reward"
)

// ExternalPaymentMethod reports whether the method settles outside the
// resident's wallet and reward balances
func ExternalPaymentMethod(m PaymentMethod) bool {
	return m == PaymentMethodCard || m == PaymentMethodBank
}

// RefType identifies which kind of record an audit transaction refers to
type RefType string

const (
	RefTypeWallet    RefType = "wallet"
	RefTypeBill      RefType = "bill"
	RefTypeReward    RefType = "reward"
	RefTypeMultiBill RefType = "multi-bill"
)

// AuditStatus defines audit transaction states
type AuditStatus string

const (
	AuditStatusPending   AuditStatus = "pending"
	AuditStatusCompleted AuditStatus = "completed"
	AuditStatusFailed    AuditStatus = "failed"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
