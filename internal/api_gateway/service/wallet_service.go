package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecocollect-billing/internal/domain/audit"
	"github.com/ecocollect-billing/internal/domain/outbox"
	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/domain/wallet"
	"github.com/ecocollect-billing/internal/settlement"
)

// walletHistoryDefaultLimit is the number of history entries returned when
// the caller does not ask for a specific amount
const walletHistoryDefaultLimit = 5

const walletHistoryMaxLimit = 100

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	db         settlement.TxRunner
	walletRepo wallet.Repository
	outboxRepo outbox.Repository
	currency   string
	logger     *slog.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(logger *slog.Logger, db settlement.TxRunner, walletRepo wallet.Repository, outboxRepo outbox.Repository, currency string) WalletService {
	return &WalletServiceImpl{
		db:         db,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		currency:   currency,
		logger:     logger,
	}
}

// GetWallet returns the wallet and its recent history, creating an empty
// wallet on first read. A non-positive limit falls back to the default;
// oversized limits are clamped.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, residentID uuid.UUID, limit int) (*wallet.Wallet, []*wallet.Entry, error) {
	if limit <= 0 {
		limit = walletHistoryDefaultLimit
	}
	if limit > walletHistoryMaxLimit {
		limit = walletHistoryMaxLimit
	}

	w, err := s.walletRepo.GetOrCreate(ctx, residentID, s.currency)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.walletRepo.RecentHistory(ctx, residentID, limit)
	if err != nil {
		return nil, nil, err
	}

	return w, history, nil
}

// AddFunds credits the wallet. The balance mutation, its history entry,
// and the audit outbox record commit together.
func (s *WalletServiceImpl) AddFunds(ctx context.Context, residentID uuid.UUID, amount int64, method, correlationID string) (*wallet.Wallet, error) {
	if amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	w, err := s.walletRepo.GetOrCreate(ctx, residentID, s.currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reference := uuid.New()

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		walletRepo := s.walletRepo.WithTx(tx)

		newBalance, creditErr := walletRepo.Credit(ctx, residentID, amount)
		if creditErr != nil {
			return creditErr
		}

		note := fmt.Sprintf("Top-up via %s", method)
		entry := wallet.NewEntry(residentID, shared.DirectionCredit, amount, note, reference.String(), now)
		if addErr := walletRepo.AddEntry(ctx, entry); addErr != nil {
			return addErr
		}

		txn := &audit.Transaction{
			TransactionID:      uuid.New(),
			ResidentID:         residentID,
			Direction:          shared.DirectionCredit,
			Amount:             amount,
			Currency:           s.currency,
			Note:               note,
			RefType:            shared.RefTypeWallet,
			RefID:              residentID.String(),
			WalletBalanceAfter: &newBalance,
			PaymentMethod:      shared.PaymentMethod(method),
			Status:             shared.AuditStatusCompleted,
			PaymentReference:   reference.String(),
			CorrelationID:      correlationID,
			CreatedAt:          now,
		}
		msg, msgErr := outbox.NewMessage(txn)
		if msgErr != nil {
			return fmt.Errorf("failed to build outbox message: %w", msgErr)
		}
		if createErr := s.outboxRepo.WithTx(tx).Create(ctx, msg); createErr != nil {
			return createErr
		}

		w.Balance = newBalance
		w.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Wallet funded",
		"resident_id", residentID.String(),
		"amount", amount,
		"method", method,
		"new_balance", w.Balance)

	return w, nil
}
