package service

import (
	"context"
	"log/slog"

	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/platform/messaging/producers"
	"github.com/ecocollect-billing/internal/settlement"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	orchestrator    *settlement.Orchestrator
	receiptProducer producers.MessagePublisher
	logger          *slog.Logger
}

// NewPaymentService creates a new payment service. receiptProducer may be
// nil when receipt publishing is disabled.
func NewPaymentService(logger *slog.Logger, orchestrator *settlement.Orchestrator, receiptProducer producers.MessagePublisher) PaymentService {
	return &PaymentServiceImpl{
		orchestrator:    orchestrator,
		receiptProducer: receiptProducer,
		logger:          logger,
	}
}

// Pay runs the waterfall and, on success, publishes a receipt. The receipt
// is a fire-and-forget notification: a publish failure is logged and the
// payment still succeeds. The audit log is the record of truth.
func (s *PaymentServiceImpl) Pay(ctx context.Context, req *settlement.Request) (*settlement.Summary, error) {
	summary, err := s.orchestrator.Pay(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.receiptProducer != nil {
		receipt := &shared.PaymentReceipt{
			Reference:     summary.Reference.String(),
			ResidentID:    summary.ResidentID,
			BillIDs:       summary.BillIDs,
			TotalBilled:   summary.TotalBilled,
			Deductions:    summary.Deductions,
			TotalPaid:     summary.TotalPaid,
			PaymentMethod: summary.Method,
			PaidAt:        summary.PaidAt,
			CorrelationID: req.CorrelationID,
		}
		if pubErr := s.receiptProducer.Publish(ctx, summary.Reference.String(), receipt); pubErr != nil {
			s.logger.Error("Failed to publish payment receipt",
				"reference", summary.Reference.String(),
				"resident_id", summary.ResidentID.String(),
				"error", pubErr)
		}
	}

	return summary, nil
}
