package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/billgen"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/shared"
)

// OverdueBillsCode is the machine-readable denial code of the scheduling gate
const OverdueBillsCode = "OVERDUE_BILLS"

// BillServiceImpl implements the BillService interface
type BillServiceImpl struct {
	billRepo  bill.Repository
	generator *billgen.Generator
	logger    *slog.Logger
}

// NewBillService creates a new bill service
func NewBillService(logger *slog.Logger, billRepo bill.Repository, generator *billgen.Generator) BillService {
	return &BillServiceImpl{
		billRepo:  billRepo,
		generator: generator,
		logger:    logger,
	}
}

// ListMyBills lists the resident's bills and opportunistically persists
// the due -> overdue transition for any bill past its due date. A failure
// to persist is logged, not surfaced: the caller still sees the effective
// status, and the next read retries.
func (s *BillServiceImpl) ListMyBills(ctx context.Context, residentID uuid.UUID, statusFilter bill.Status) ([]*bill.Bill, error) {
	bills, err := s.billRepo.ListByResident(ctx, residentID, "")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, b := range bills {
		effective := bill.EffectiveStatus(b, now)
		if effective != b.Status {
			if moErr := s.billRepo.MarkOverdue(ctx, b.ID); moErr != nil {
				s.logger.Error("Failed to materialize overdue status",
					"bill_id", b.ID.String(),
					"error", moErr)
			}
			b.Status = effective
		}
	}

	if statusFilter == "" {
		return bills, nil
	}

	filtered := bills[:0]
	for _, b := range bills {
		if b.Status == statusFilter {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// CheckOutstanding denies scheduling while overdue debt exists. Overdue
// status is materialized first so a bill that lapsed since the last read
// counts against the resident.
func (s *BillServiceImpl) CheckOutstanding(ctx context.Context, residentID uuid.UUID) (*OutstandingCheck, error) {
	bills, err := s.ListMyBills(ctx, residentID, bill.StatusOverdue)
	if err != nil {
		return nil, err
	}

	if len(bills) == 0 {
		return &OutstandingCheck{Allowed: true}, nil
	}

	var total int64
	for _, b := range bills {
		total += b.Amount
	}

	return &OutstandingCheck{
		Allowed:             false,
		HasOutstandingBills: true,
		Code:                OverdueBillsCode,
		OutstandingBalance:  total,
		OverdueCount:        len(bills),
	}, nil
}

// GenerateForCollection creates the bill and reward for a collection on
// behalf of an admin, using the same idempotent generator as the event
// pipeline
func (s *BillServiceImpl) GenerateForCollection(ctx context.Context, residentID, collectionID uuid.UUID, wasteCategory string, weightKg float64, createdBy, correlationID string) (*bill.Bill, error) {
	event := &shared.CollectionCompletedEvent{
		CollectionID:  collectionID,
		ResidentID:    residentID,
		WasteCategory: wasteCategory,
		WeightKg:      weightKg,
		CompletedBy:   createdBy,
		CompletedAt:   time.Now().UTC(),
		CorrelationID: correlationID,
	}

	return s.generator.Generate(ctx, event)
}
