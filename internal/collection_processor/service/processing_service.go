package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ecocollect-billing/internal/billgen"
	"github.com/ecocollect-billing/internal/domain/shared"
)

// BillGenerationService turns collection events into bills and rewards
// through the generator. Duplicate deliveries resolve to the existing bill
// inside the generator, so processing here is retry-safe end to end.
type BillGenerationService struct {
	generator *billgen.Generator
	logger    *slog.Logger
}

// NewBillGenerationService creates a new processing service
func NewBillGenerationService(logger *slog.Logger, generator *billgen.Generator) *BillGenerationService {
	return &BillGenerationService{
		generator: generator,
		logger:    logger,
	}
}

// ProcessCollection generates the obligation for one completed collection
func (s *BillGenerationService) ProcessCollection(ctx context.Context, event *shared.CollectionCompletedEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	b, err := s.generator.Generate(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to generate bill for collection %s: %w", event.CollectionID, err)
	}

	logger.Info("Collection billed",
		"collection_id", event.CollectionID.String(),
		"bill_id", b.ID.String(),
		"invoice_number", b.InvoiceNumber,
		"amount", b.Amount,
	)
	return nil
}
