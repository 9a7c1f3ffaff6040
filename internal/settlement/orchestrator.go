package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecocollect-billing/internal/domain/audit"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/outbox"
	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/domain/wallet"
)

// TxRunner runs a function inside a database transaction. Satisfied by
// *persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Orchestrator executes the payment waterfall. Consistency model:
//
// Every reward redemption commits in its own small transaction together
// with its audit record, before the wallet is touched. A later failure
// (typically an insufficient wallet balance) therefore leaves already
// consumed rewards consumed. Each redemption is individually durable and
// individually audited.
//
// The wallet debit, the external settlement record, and every bill status
// flip commit together in one final transaction, so the money movement
// itself is all-or-nothing.
//
// A per-resident lock serializes waterfalls for the same resident; the
// compare-and-set guards on bills and rewards protect against anything the
// lock cannot see (other instances, out-of-band mutations).
type Orchestrator struct {
	logger     *slog.Logger
	db         TxRunner
	billRepo   bill.Repository
	rewardRepo reward.Repository
	walletRepo wallet.Repository
	outboxRepo outbox.Repository
	locker     *ResidentLocker
	currency   string
}

// NewOrchestrator creates a payment orchestrator
func NewOrchestrator(
	logger *slog.Logger,
	db TxRunner,
	billRepo bill.Repository,
	rewardRepo reward.Repository,
	walletRepo wallet.Repository,
	outboxRepo outbox.Repository,
	currency string,
) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		db:         db,
		billRepo:   billRepo,
		rewardRepo: rewardRepo,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		locker:     NewResidentLocker(),
		currency:   currency,
	}
}

// Pay settles the selected bills with the rewards -> wallet -> external
// waterfall. All bills are validated before any ledger is mutated.
func (o *Orchestrator) Pay(ctx context.Context, req *Request) (*Summary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := o.locker.Lock(req.ResidentID)
	defer unlock()

	bills, totalBilled, err := o.validateBills(ctx, req)
	if err != nil {
		return nil, err
	}

	reference := uuid.New()
	paidAt := time.Now().UTC()
	refType, refID := paymentRef(reference, req.BillIDs)
	remaining := totalBilled

	var deductions []shared.Deduction
	var appliedRewards []AppliedReward
	var rewardTotal int64

	if req.ApplyRewards {
		appliedRewards, rewardTotal, err = o.redeemRewards(ctx, req, reference, refType, refID, remaining, paidAt)
		if err != nil {
			return nil, err
		}
		for _, ar := range appliedRewards {
			deductions = append(deductions, shared.Deduction{Description: ar.Label, Amount: ar.Applied})
		}
		remaining -= rewardTotal
	}

	var walletApplied, externalApplied int64

	// The wallet debit, the external settlement record, and every bill
	// flip commit or roll back together.
	err = o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		walletRepo := o.walletRepo.WithTx(tx)
		billRepo := o.billRepo.WithTx(tx)
		outboxRepo := o.outboxRepo.WithTx(tx)

		if remaining > 0 && req.WalletRequested() {
			w, lockErr := walletRepo.LockForUpdate(ctx, req.ResidentID)
			if lockErr != nil {
				if errors.Is(lockErr, wallet.ErrWalletNotFound{ResidentID: req.ResidentID}) {
					if !shared.ExternalPaymentMethod(req.Method) {
						return wallet.ErrInsufficientBalance{ResidentID: req.ResidentID, Balance: 0, Required: remaining}
					}
					w = nil
				} else {
					return lockErr
				}
			}

			if w != nil {
				walletApplied = remaining
				if w.Balance < remaining {
					// A partial draw is only allowed when an external
					// method stands behind the wallet.
					if !shared.ExternalPaymentMethod(req.Method) {
						return wallet.ErrInsufficientBalance{ResidentID: req.ResidentID, Balance: w.Balance, Required: remaining}
					}
					walletApplied = w.Balance
				}

				if walletApplied > 0 {
					newBalance, debitErr := walletRepo.Debit(ctx, req.ResidentID, walletApplied)
					if debitErr != nil {
						return debitErr
					}

					entry := wallet.NewEntry(req.ResidentID, shared.DirectionDebit, walletApplied, "Bill payment", reference.String(), paidAt)
					if addErr := walletRepo.AddEntry(ctx, entry); addErr != nil {
						return addErr
					}

					txn := o.newAuditTransaction(req, walletApplied, "Wallet Balance", refType, refID, shared.PaymentMethodWallet, reference, paidAt)
					txn.WalletBalanceAfter = &newBalance
					if recErr := createOutboxRecord(ctx, outboxRepo, txn); recErr != nil {
						return recErr
					}
				}
			}
		}

		shortfall := remaining - walletApplied
		if shortfall > 0 {
			if !shared.ExternalPaymentMethod(req.Method) {
				return ErrNothingContributed
			}
			// There is no real gateway call; the audit record is the
			// settlement.
			externalApplied = shortfall
			txn := o.newAuditTransaction(req, externalApplied, "External payment", refType, refID, req.Method, reference, paidAt)
			if recErr := createOutboxRecord(ctx, outboxRepo, txn); recErr != nil {
				return recErr
			}
		}

		label := methodLabel(rewardTotal, walletApplied, externalApplied, req.Method)
		for _, b := range bills {
			if mpErr := billRepo.MarkPaid(ctx, b.ID, label, reference.String(), paidAt); mpErr != nil {
				return mpErr
			}
		}

		return nil
	})
	if err != nil {
		o.logger.Warn("Payment waterfall failed",
			"resident_id", req.ResidentID.String(),
			"reference", reference.String(),
			"error", err)
		return nil, err
	}

	if walletApplied > 0 {
		deductions = append(deductions, shared.Deduction{Description: "Wallet Balance", Amount: walletApplied})
	}

	summary := &Summary{
		Reference:      reference,
		ResidentID:     req.ResidentID,
		BillIDs:        req.BillIDs,
		TotalBilled:    totalBilled,
		Deductions:     deductions,
		TotalPaid:      externalApplied,
		AppliedRewards: appliedRewards,
		Method:         methodLabel(rewardTotal, walletApplied, externalApplied, req.Method),
		PaidAt:         paidAt,
	}

	o.logger.Info("Payment settled",
		"resident_id", req.ResidentID.String(),
		"reference", reference.String(),
		"bills", len(bills),
		"total_billed", totalBilled,
		"reward_total", rewardTotal,
		"wallet_applied", walletApplied,
		"external_applied", externalApplied,
		"method", summary.Method)

	return summary, nil
}

// validateBills loads every selected bill and rejects the whole request if
// any of them cannot be settled. Runs before any mutation.
func (o *Orchestrator) validateBills(ctx context.Context, req *Request) ([]*bill.Bill, int64, error) {
	bills := make([]*bill.Bill, 0, len(req.BillIDs))
	var total int64

	for _, id := range req.BillIDs {
		b, err := o.billRepo.GetByID(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		if b.ResidentID != req.ResidentID {
			return nil, 0, bill.ErrNotOwned{BillID: id}
		}
		switch b.Status {
		case bill.StatusPaid:
			return nil, 0, bill.ErrAlreadyPaid{BillID: id}
		case bill.StatusCancelled:
			return nil, 0, bill.ErrBillCancelled{BillID: id}
		}
		bills = append(bills, b)
		total += b.Amount
	}

	return bills, total, nil
}

// redeemRewards consumes unused rewards oldest first until the target is
// covered or rewards run out. Each redemption commits in its own
// transaction together with its audit record. A reward consumed by a
// concurrent request is skipped, not an error.
func (o *Orchestrator) redeemRewards(ctx context.Context, req *Request, reference uuid.UUID, refType shared.RefType, refID string, target int64, paidAt time.Time) ([]AppliedReward, int64, error) {
	if target <= 0 {
		return nil, 0, nil
	}

	unused, err := o.rewardRepo.ListUnused(ctx, req.ResidentID)
	if err != nil {
		return nil, 0, err
	}

	var applied []AppliedReward
	var total int64

	for _, rw := range unused {
		if total >= target {
			break
		}

		apply := rw.Amount
		if rem := target - total; apply > rem {
			apply = rem
		}

		rw := rw
		err = o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if redeemErr := o.rewardRepo.WithTx(tx).Redeem(ctx, rw.ID, apply, reference.String(), paidAt); redeemErr != nil {
				return redeemErr
			}

			txn := o.newAuditTransaction(req, apply, rw.Label, refType, refID, shared.PaymentMethodReward, reference, paidAt)
			return createOutboxRecord(ctx, o.outboxRepo.WithTx(tx), txn)
		})
		if err != nil {
			if errors.Is(err, reward.ErrAlreadyUsed{RewardID: rw.ID}) {
				o.logger.Debug("Skipping reward consumed by concurrent redemption",
					"reward_id", rw.ID.String(),
					"resident_id", req.ResidentID.String())
				continue
			}
			return nil, 0, fmt.Errorf("failed to redeem reward %s: %w", rw.ID, err)
		}

		applied = append(applied, AppliedReward{RewardID: rw.ID, Label: rw.Label, Applied: apply})
		total += apply
	}

	return applied, total, nil
}

func (o *Orchestrator) newAuditTransaction(req *Request, amount int64, note string, refType shared.RefType, refID string, method shared.PaymentMethod, reference uuid.UUID, paidAt time.Time) *audit.Transaction {
	return &audit.Transaction{
		TransactionID:    uuid.New(),
		ResidentID:       req.ResidentID,
		Direction:        shared.DirectionDebit,
		Amount:           amount,
		Currency:         o.currency,
		Note:             note,
		RefType:          refType,
		RefID:            refID,
		PaymentMethod:    method,
		Status:           shared.AuditStatusCompleted,
		PaymentReference: reference.String(),
		CorrelationID:    req.CorrelationID,
		CreatedAt:        paidAt,
	}
}

func createOutboxRecord(ctx context.Context, repo outbox.Repository, txn *audit.Transaction) error {
	msg, err := outbox.NewMessage(txn)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return repo.Create(ctx, msg)
}

// paymentRef computes the audit reference for a payment: the bill itself
// for a single-bill payment, the shared reference for a batch
func paymentRef(reference uuid.UUID, billIDs []uuid.UUID) (shared.RefType, string) {
	if len(billIDs) == 1 {
		return shared.RefTypeBill, billIDs[0].String()
	}
	return shared.RefTypeMultiBill, reference.String()
}
