package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ecocollect-billing/internal/collection_processor/service"
	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/platform/messaging/producers"
)

// CollectionEventHandler handles incoming collection completed messages from Kafka
type CollectionEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewCollectionEventHandler creates a new handler
func NewCollectionEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *CollectionEventHandler {
	return &CollectionEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *CollectionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.CollectionCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.divertToDLQ(ctx, key, value, "Failed to unmarshal collection event from Kafka message", err)
	}

	if err := event.Validate(); err != nil {
		// A malformed event never becomes valid on redelivery
		return h.divertToDLQ(ctx, key, value, "Collection event failed validation", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received collection event for processing",
		"collection_id", event.CollectionID.String(),
		"resident_id", event.ResidentID.String(),
		"waste_category", event.WasteCategory,
		"weight_kg", event.WeightKg,
	)

	if err := h.processingService.ProcessCollection(ctx, &event); err != nil {
		logger.Error("Failed to process collection event",
			"collection_id", event.CollectionID.String(),
			"resident_id", event.ResidentID.String(),
			"error", err,
		)
		return fmt.Errorf("processing collection %s failed: %w", event.CollectionID.String(), err)
	}

	logger.Info("Successfully processed collection event", "collection_id", event.CollectionID.String())
	return nil // Success, commit offset
}

// divertToDLQ routes an unprocessable message to the dead letter queue.
// When the DLQ succeeds the offset is committed; when it fails the error
// is returned so Kafka redelivers.
func (h *CollectionEventHandler) divertToDLQ(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg,
		"error", cause,
		"message_key", string(key),
	)

	if h.producer != nil {
		dlqReason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
			return nil
		}
	}
	// Allow Kafka retries
	return fmt.Errorf("%s: %w", msg, cause)
}
