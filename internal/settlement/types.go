// Package settlement implements the payment waterfall that funds one or
// more bills from the resident's rewards, wallet balance, and an external
// method, in that order.
package settlement

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/domain/shared"
)

// Common errors
var (
	ErrNoBills            = errors.New("payment request selects no bills")
	ErrDuplicateBill      = errors.New("payment request selects the same bill twice")
	ErrUnsupportedMethod  = errors.New("unsupported payment method")
	ErrNothingContributed = errors.New("no funding source available for payment")
)

// Request describes one payment attempt. The waterfall draws on rewards
// first (when ApplyRewards is set), then the wallet, then the external
// method. Method names the resident's chosen funding source; UseWallet
// additionally enables a partial wallet draw ahead of an external method
// in batch flows.
type Request struct {
	ResidentID    uuid.UUID
	BillIDs       []uuid.UUID
	Method        shared.PaymentMethod
	UseWallet     bool
	ApplyRewards  bool
	CorrelationID string
}

// Validate checks the request shape before any ledger is touched
func (r *Request) Validate() error {
	if len(r.BillIDs) == 0 {
		return ErrNoBills
	}
	seen := make(map[uuid.UUID]struct{}, len(r.BillIDs))
	for _, id := range r.BillIDs {
		if _, dup := seen[id]; dup {
			return ErrDuplicateBill
		}
		seen[id] = struct{}{}
	}
	switch r.Method {
	case shared.PaymentMethodWallet, shared.PaymentMethodCard, shared.PaymentMethodBank:
		return nil
	}
	return ErrUnsupportedMethod
}

// WalletRequested reports whether the waterfall may draw on the wallet
func (r *Request) WalletRequested() bool {
	return r.UseWallet || r.Method == shared.PaymentMethodWallet
}

// AppliedReward records one reward consumed by a payment. Applied may be
// less than the reward's full value; the remainder is forfeited.
type AppliedReward struct {
	RewardID uuid.UUID `json:"reward_id"`
	Label    string    `json:"label"`
	Applied  int64     `json:"applied"`
}

// Summary is the outcome of a successful payment. TotalPaid is the amount
// charged to the external method; it is zero when rewards and the wallet
// covered everything. TotalBilled always equals the sum of the deduction
// amounts plus TotalPaid.
type Summary struct {
	Reference      uuid.UUID          `json:"reference"`
	ResidentID     uuid.UUID          `json:"resident_id"`
	BillIDs        []uuid.UUID        `json:"bill_ids"`
	TotalBilled    int64              `json:"total_billed"`
	Deductions     []shared.Deduction `json:"deductions"`
	TotalPaid      int64              `json:"total_paid"`
	AppliedRewards []AppliedReward    `json:"applied_rewards"`
	Method         string             `json:"payment_method"`
	PaidAt         time.Time          `json:"paid_at"`
}

// methodLabel builds the canonical lowercase label recorded on paid bills,
// joining contributing sources in waterfall order ("rewards+wallet+card").
// Display capitalization is an interface concern, not a settlement one.
func methodLabel(rewardTotal, walletApplied, externalApplied int64, external shared.PaymentMethod) string {
	var parts []string
	if rewardTotal > 0 {
		parts = append(parts, "rewards")
	}
	if walletApplied > 0 {
		parts = append(parts, string(shared.PaymentMethodWallet))
	}
	if externalApplied > 0 {
		parts = append(parts, string(external))
	}
	return strings.Join(parts, "+")
}
