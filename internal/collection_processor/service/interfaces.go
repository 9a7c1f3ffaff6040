package service

import (
	"context"

	"github.com/ecocollect-billing/internal/domain/shared"
)

// ProcessingService defines the interface for processing collection events
type ProcessingService interface {
	ProcessCollection(ctx context.Context, event *shared.CollectionCompletedEvent) error
}
