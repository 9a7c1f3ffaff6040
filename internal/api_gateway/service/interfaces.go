package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/domain/audit"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/domain/wallet"
	"github.com/ecocollect-billing/internal/settlement"
)

// BillService defines the interface for bill operations
type BillService interface {
	// ListMyBills returns the resident's bills with overdue status
	// materialized: a due bill past its due date is persisted as overdue
	// before it is returned.
	ListMyBills(ctx context.Context, residentID uuid.UUID, statusFilter bill.Status) ([]*bill.Bill, error)

	// CheckOutstanding implements the scheduling gate: overdue bills
	// block, merely due bills do not
	CheckOutstanding(ctx context.Context, residentID uuid.UUID) (*OutstandingCheck, error)

	// GenerateForCollection invokes the bill generator directly (admin
	// path, bypassing the event pipeline)
	GenerateForCollection(ctx context.Context, residentID, collectionID uuid.UUID, wasteCategory string, weightKg float64, createdBy, correlationID string) (*bill.Bill, error)
}

// OutstandingCheck is the scheduling gate verdict
type OutstandingCheck struct {
	Allowed             bool   `json:"allowed"`
	HasOutstandingBills bool   `json:"has_outstanding_bills"`
	Code                string `json:"code,omitempty"`
	OutstandingBalance  int64  `json:"outstanding_balance"`
	OverdueCount        int    `json:"overdue_count"`
}

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// Pay runs the settlement waterfall and publishes a receipt on success
	Pay(ctx context.Context, req *settlement.Request) (*settlement.Summary, error)
}

// WalletService defines the interface for wallet operations
type WalletService interface {
	// GetWallet returns the wallet with its recent history, creating an
	// empty wallet on first read. A non-positive limit selects the
	// default history depth.
	GetWallet(ctx context.Context, residentID uuid.UUID, limit int) (*wallet.Wallet, []*wallet.Entry, error)

	// AddFunds credits the wallet and records the top-up in the audit log
	AddFunds(ctx context.Context, residentID uuid.UUID, amount int64, method, correlationID string) (*wallet.Wallet, error)
}

// RewardService defines the interface for reward operations
type RewardService interface {
	// ListRewards returns the resident's rewards split into unused and used
	ListRewards(ctx context.Context, residentID uuid.UUID) (unused, used []*reward.Reward, err error)
}

// TransactionService defines the interface for audit log queries
type TransactionService interface {
	// ListMyTransactions returns the resident's audit records newest
	// first, plus the total count
	ListMyTransactions(ctx context.Context, residentID uuid.UUID, page, perPage int) ([]*audit.Transaction, int64, error)
}
