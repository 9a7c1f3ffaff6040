// Package billgen turns completed waste collections into billable
// obligations and the reward credits that go with them.
package billgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/domain/shared"
)

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Generator creates the bill and the reward for a completed collection.
// Generation is idempotent per collection: duplicate deliveries of the
// same event land on the unique constraint and are treated as already
// handled.
type Generator struct {
	logger         *slog.Logger
	db             TxRunner
	billRepo       bill.Repository
	rewardRepo     reward.Repository
	pricing        bill.Pricing
	rewardRates    reward.Rates
	invoicePrefix  string
	invoiceRetries int
}

// NewGenerator creates a bill generator
func NewGenerator(
	logger *slog.Logger,
	db TxRunner,
	billRepo bill.Repository,
	rewardRepo reward.Repository,
	pricing bill.Pricing,
	rewardRates reward.Rates,
	invoicePrefix string,
	invoiceRetries int,
) *Generator {
	if invoiceRetries < 1 {
		invoiceRetries = 1
	}
	return &Generator{
		logger:         logger,
		db:             db,
		billRepo:       billRepo,
		rewardRepo:     rewardRepo,
		pricing:        pricing,
		rewardRates:    rewardRates,
		invoicePrefix:  invoicePrefix,
		invoiceRetries: invoiceRetries,
	}
}

// Generate creates the obligation and reward for the event. Returns the
// existing bill without error when the collection was already billed, so
// duplicate event delivery is harmless. An invoice number collision is
// retried with a fresh number.
func (g *Generator) Generate(ctx context.Context, event *shared.CollectionCompletedEvent) (*bill.Bill, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < g.invoiceRetries; attempt++ {
		now := time.Now().UTC()

		newBill, err := bill.NewBill(
			event.ResidentID,
			event.CollectionID,
			event.WasteCategory,
			event.WeightKg,
			g.pricing,
			bill.NewInvoiceNumber(g.invoicePrefix, now),
			event.CompletedBy,
			now,
		)
		if err != nil {
			return nil, err
		}

		newReward := reward.NewReward(
			event.ResidentID,
			event.CollectionID,
			event.WasteCategory,
			event.WeightKg,
			g.rewardRates,
			event.CompletedBy,
			now,
		)

		err = g.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if createErr := g.billRepo.WithTx(tx).Create(ctx, newBill); createErr != nil {
				return createErr
			}
			if newReward != nil {
				if createErr := g.rewardRepo.WithTx(tx).Create(ctx, newReward); createErr != nil {
					return createErr
				}
			}
			return nil
		})
		if err == nil {
			g.logger.Info("Generated bill for collection",
				"collection_id", event.CollectionID.String(),
				"resident_id", event.ResidentID.String(),
				"bill_id", newBill.ID.String(),
				"amount", newBill.Amount,
				"reward_credited", newReward != nil,
				"correlation_id", event.CorrelationID)
			return newBill, nil
		}

		if errors.Is(err, bill.ErrDuplicateObligation{CollectionID: event.CollectionID}) ||
			errors.Is(err, reward.ErrDuplicateReward{CollectionID: event.CollectionID}) {
			existing, getErr := g.billRepo.GetBySourceCollectionID(ctx, event.CollectionID)
			if getErr != nil {
				return nil, getErr
			}
			if existing == nil {
				return nil, fmt.Errorf("duplicate obligation reported but no bill found for collection %s", event.CollectionID)
			}
			g.logger.Info("Collection already billed, skipping",
				"collection_id", event.CollectionID.String(),
				"bill_id", existing.ID.String())
			return existing, nil
		}

		var dupInvoice bill.ErrDuplicateInvoiceNumber
		if errors.As(err, &dupInvoice) {
			g.logger.Warn("Invoice number collision, retrying with a fresh number",
				"collection_id", event.CollectionID.String(),
				"invoice_number", dupInvoice.InvoiceNumber,
				"attempt", attempt+1)
			lastErr = err
			continue
		}

		return nil, err
	}

	return nil, fmt.Errorf("exhausted %d invoice number attempts: %w", g.invoiceRetries, lastErr)
}
