package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecocollect-billing/internal/api_gateway/middleware"
	"github.com/ecocollect-billing/internal/api_gateway/service"
)

// TransactionHandler handles HTTP requests for audit log queries
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// ListMine returns a page of the caller's audit records, newest first
func (h *TransactionHandler) ListMine(c *gin.Context) {
	residentID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	perPage := params.EffectivePerPage()
	txns, total, err := h.transactionService.ListMyTransactions(c.Request.Context(), residentID, params.Page, perPage)
	if err != nil {
		h.logger.Error("Failed to list transactions", "resident_id", residentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(txns))}
	for _, t := range txns {
		response.Transactions = append(response.Transactions, mapTransactionToResponse(t))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, params.Page, perPage, int(total))
}
