package handler

import (
	"strings"
	"time"

	"github.com/ecocollect-billing/internal/domain/audit"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/domain/wallet"
	"github.com/ecocollect-billing/internal/settlement"
)

// PayBillRequest represents a single-bill payment request
type PayBillRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=wallet card bank"`
	ApplyRewards  bool   `json:"apply_rewards"`
}

// PayMultipleRequest represents a batch payment request
type PayMultipleRequest struct {
	BillIDs       []string `json:"bill_ids" binding:"required,min=1,dive,uuid"`
	PaymentMethod string   `json:"payment_method" binding:"required,oneof=wallet card bank"`
	UseWallet     bool     `json:"use_wallet"`
	ApplyRewards  bool     `json:"apply_rewards"`
}

// GenerateBillRequest represents an admin bill generation request
type GenerateBillRequest struct {
	ResidentID    string  `json:"resident_id" binding:"required,uuid"`
	WasteCategory string  `json:"waste_category" binding:"required"`
	WeightKg      float64 `json:"weight_kg" binding:"required,gt=0"`
}

// AddFundsRequest represents a wallet top-up request
type AddFundsRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method" binding:"required,oneof=card bank"`
}

// BillResponse represents a bill in API responses
type BillResponse struct {
	ID               string   `json:"id"`
	ResidentID       string   `json:"resident_id"`
	Title            string   `json:"title"`
	Amount           int64    `json:"amount"`
	Currency         string   `json:"currency"`
	DueDate          string   `json:"due_date"`
	Status           string   `json:"status"`
	InvoiceNumber    string   `json:"invoice_number"`
	PaymentDate      string   `json:"payment_date,omitempty"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	PaymentReference string   `json:"payment_reference,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// BillListResponse represents a list of bills in API responses
type BillListResponse struct {
	Bills []BillResponse `json:"bills"`
}

// DeductionResponse represents one funding line of a payment
type DeductionResponse struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// AppliedRewardResponse represents one redeemed reward in a payment summary
type AppliedRewardResponse struct {
	RewardID string `json:"reward_id"`
	Label    string `json:"label"`
	Applied  int64  `json:"applied"`
}

// PaymentSummaryResponse represents a settled payment in API responses
type PaymentSummaryResponse struct {
	Reference      string                  `json:"reference"`
	BillIDs        []string                `json:"bill_ids"`
	TotalBilled    int64                   `json:"total_billed"`
	Deductions     []DeductionResponse     `json:"deductions"`
	TotalPaid      int64                   `json:"total_paid"`
	AppliedRewards []AppliedRewardResponse `json:"applied_rewards,omitempty"`
	PaymentMethod  string                  `json:"payment_method"`
	PaidAt         string                  `json:"paid_at"`
}

// WalletEntryResponse represents one wallet history line
type WalletEntryResponse struct {
	ID        string `json:"txn_id"`
	Direction string `json:"direction"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note,omitempty"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	ResidentID string                `json:"resident_id"`
	Balance    int64                 `json:"balance"`
	Currency   string                `json:"currency"`
	UpdatedAt  string                `json:"updated_at"`
	History    []WalletEntryResponse `json:"history,omitempty"`
}

// RewardResponse represents a reward in API responses
type RewardResponse struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Label      string `json:"label"`
	Amount     int64  `json:"amount"`
	Unit       string `json:"unit"`
	EarnedDate string `json:"earned_date"`
	Used       bool   `json:"used"`
	UsedAmount int64  `json:"used_amount,omitempty"`
	UsedDate   string `json:"used_date,omitempty"`
	UsedFor    string `json:"used_for,omitempty"`
}

// RewardListResponse splits a resident's rewards into unused and used
type RewardListResponse struct {
	Unused []RewardResponse `json:"unused"`
	Used   []RewardResponse `json:"used"`
}

// TransactionResponse represents an audit record in API responses
type TransactionResponse struct {
	TransactionID      string `json:"transaction_id"`
	Direction          string `json:"direction"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	Note               string `json:"note,omitempty"`
	RefType            string `json:"ref_type"`
	RefID              string `json:"ref_id"`
	WalletBalanceAfter *int64 `json:"wallet_balance_after,omitempty"`
	PaymentMethod      string `json:"payment_method"`
	Status             string `json:"status"`
	PaymentReference   string `json:"payment_reference,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// TransactionListResponse represents a list of audit records in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// PaginationParams represents pagination parameters for list endpoints.
// limit is accepted as an alias for per_page and wins when both are given.
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
	Limit   int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// EffectivePerPage resolves the page size, honoring the limit alias
func (p PaginationParams) EffectivePerPage() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return p.PerPage
}

// displayMethod converts the canonical lowercase method label stored by
// the settlement core ("rewards+wallet") into its display form
// ("Rewards + Wallet"). Presentation only; never written back.
func displayMethod(label string) string {
	if label == "" {
		return ""
	}
	parts := strings.Split(label, "+")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " + ")
}

func mapBillToResponse(b *bill.Bill) BillResponse {
	resp := BillResponse{
		ID:               b.ID.String(),
		ResidentID:       b.ResidentID.String(),
		Title:            b.Title,
		Amount:           b.Amount,
		Currency:         b.Currency,
		DueDate:          b.DueDate.Format(time.RFC3339),
		Status:           string(b.Status),
		InvoiceNumber:    b.InvoiceNumber,
		PaymentMethod:    displayMethod(b.PaymentMethod),
		PaymentReference: b.PaymentReference,
		Tags:             b.Tags,
		Notes:            b.Notes,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
	if b.PaymentDate != nil {
		resp.PaymentDate = b.PaymentDate.Format(time.RFC3339)
	}
	return resp
}

func mapSummaryToResponse(s *settlement.Summary) PaymentSummaryResponse {
	resp := PaymentSummaryResponse{
		Reference:     s.Reference.String(),
		TotalBilled:   s.TotalBilled,
		TotalPaid:     s.TotalPaid,
		PaymentMethod: displayMethod(s.Method),
		PaidAt:        s.PaidAt.Format(time.RFC3339),
	}
	for _, id := range s.BillIDs {
		resp.BillIDs = append(resp.BillIDs, id.String())
	}
	for _, d := range s.Deductions {
		resp.Deductions = append(resp.Deductions, DeductionResponse{Description: d.Description, Amount: d.Amount})
	}
	for _, ar := range s.AppliedRewards {
		resp.AppliedRewards = append(resp.AppliedRewards, AppliedRewardResponse{
			RewardID: ar.RewardID.String(),
			Label:    ar.Label,
			Applied:  ar.Applied,
		})
	}
	return resp
}

func mapWalletToResponse(w *wallet.Wallet, history []*wallet.Entry) WalletResponse {
	resp := WalletResponse{
		ResidentID: w.ResidentID.String(),
		Balance:    w.Balance,
		Currency:   w.Currency,
		UpdatedAt:  w.UpdatedAt.Format(time.RFC3339),
	}
	for _, e := range history {
		resp.History = append(resp.History, WalletEntryResponse{
			ID:        e.ID.String(),
			Direction: string(e.Direction),
			Amount:    e.Amount,
			Note:      e.Note,
			Reference: e.Reference,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func mapRewardToResponse(r *reward.Reward) RewardResponse {
	resp := RewardResponse{
		ID:         r.ID.String(),
		Category:   r.Category,
		Label:      r.Label,
		Amount:     r.Amount,
		Unit:       r.Unit,
		EarnedDate: r.EarnedDate.Format(time.RFC3339),
		Used:       r.Used,
		UsedAmount: r.UsedAmount,
		UsedFor:    r.UsedFor,
	}
	if r.UsedDate != nil {
		resp.UsedDate = r.UsedDate.Format(time.RFC3339)
	}
	return resp
}

func mapTransactionToResponse(t *audit.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:      t.TransactionID.String(),
		Direction:          string(t.Direction),
		Amount:             t.Amount,
		Currency:           t.Currency,
		Note:               t.Note,
		RefType:            string(t.RefType),
		RefID:              t.RefID,
		WalletBalanceAfter: t.WalletBalanceAfter,
		PaymentMethod:      string(t.PaymentMethod),
		Status:             string(t.Status),
		PaymentReference:   t.PaymentReference,
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
	}
}
