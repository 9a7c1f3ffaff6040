package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ecocollect-billing/internal/domain/audit"
	"github.com/ecocollect-billing/internal/domain/outbox"
	"github.com/ecocollect-billing/internal/domain/shared"
)

// AuditPublisher publishes outbox messages to the audit log
type AuditPublisher interface {
	PublishToAuditLog(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// PublishToAuditLog writes the message's audit transaction to MongoDB and
// marks the outbox row processed. Redelivery after a crash between the two
// steps lands on the duplicate check and resolves cleanly.
func (p *AuditPublisherImpl) PublishToAuditLog(ctx context.Context, message *outbox.Message) error {
	var txn audit.Transaction
	if err := json.Unmarshal(message.Payload, &txn); err != nil {
		p.logger.Error("Failed to unmarshal audit transaction from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if txn.CorrelationID != "" {
		logger = p.logger.With("correlation_id", txn.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to audit log", "outbox_id", message.ID, "transaction_id", message.TransactionID)

	err := p.auditRepo.Create(ctx, &txn)
	if err != nil {
		if errors.Is(err, audit.ErrDuplicateTransaction{}) {
			logger.Info("Audit transaction already recorded", "transaction_id", txn.TransactionID)
		} else {
			logger.Error("Failed to create audit transaction in MongoDB", "transaction_id", txn.TransactionID, "error", err)
			return fmt.Errorf("failed to create audit transaction %s: %w", txn.TransactionID, err)
		}
	} else {
		logger.Info("Successfully created audit transaction in MongoDB", "transaction_id", txn.TransactionID)
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}
