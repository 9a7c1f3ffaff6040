package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/domain/audit"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	auditRepo audit.Repository
}

// NewTransactionService creates a new transaction service
func NewTransactionService(auditRepo audit.Repository) TransactionService {
	return &TransactionServiceImpl{
		auditRepo: auditRepo,
	}
}

// ListMyTransactions returns a page of the resident's audit records,
// newest first, plus the total count
func (s *TransactionServiceImpl) ListMyTransactions(ctx context.Context, residentID uuid.UUID, page, perPage int) ([]*audit.Transaction, int64, error) {
	offset := (page - 1) * perPage

	txns, err := s.auditRepo.ListByResident(ctx, residentID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditRepo.CountByResident(ctx, residentID)
	if err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}
