package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownWasteCategory = errors.New("unknown waste category")
	ErrInvalidWeight        = errors.New("collected weight must be positive")
)

// CollectionCompletedEvent is the Kafka message emitted by the scheduling
// workflow when a pickup finishes. It is the sole trigger for bill
// generation and reward crediting; delivery may be duplicated, so
// consumers key idempotency on CollectionID.
type CollectionCompletedEvent struct {
	CollectionID  uuid.UUID `json:"collection_id"`
	ResidentID    uuid.UUID `json:"resident_id"`
	WasteCategory string    `json:"waste_category"`
	WeightKg      float64   `json:"weight_kg"`
	CompletedBy   string    `json:"completed_by"`
	CompletedAt   time.Time `json:"completed_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Validate checks the event carries enough to bill against
func (e *CollectionCompletedEvent) Validate() error {
	if e.CollectionID == uuid.Nil {
		return errors.New("collection id is required")
	}
	if e.ResidentID == uuid.Nil {
		return errors.New("resident id is required")
	}
	if e.WasteCategory == "" {
		return ErrUnknownWasteCategory
	}
	if e.WeightKg <= 0 {
		return ErrInvalidWeight
	}
	return nil
}
