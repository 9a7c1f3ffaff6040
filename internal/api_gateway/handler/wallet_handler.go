package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/api_gateway/middleware"
	"github.com/ecocollect-billing/internal/api_gateway/service"
	"github.com/ecocollect-billing/internal/domain/wallet"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// residentFromPath resolves the :residentId parameter and enforces that
// non-admin callers only touch their own wallet
func (h *WalletHandler) residentFromPath(c *gin.Context) (uuid.UUID, bool) {
	residentID, err := uuid.Parse(c.Param("residentId"))
	if err != nil {
		RespondBadRequest(c, "Invalid resident ID")
		return uuid.Nil, false
	}

	callerID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return uuid.Nil, false
	}
	if callerID != residentID && middleware.GetResidentRole(c) != middleware.RoleAdmin {
		RespondForbidden(c, "Wallet belongs to another resident")
		return uuid.Nil, false
	}

	return residentID, true
}

// Get returns the wallet and its recent history. The optional limit query
// parameter controls the history depth.
func (h *WalletHandler) Get(c *gin.Context) {
	residentID, ok := h.residentFromPath(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondBadRequest(c, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	w, history, err := h.walletService.GetWallet(c.Request.Context(), residentID, limit)
	if err != nil {
		h.logger.Error("Failed to get wallet", "resident_id", residentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWalletToResponse(w, history))
}

// AddFunds credits the wallet from an external source
func (h *WalletHandler) AddFunds(c *gin.Context) {
	residentID, ok := h.residentFromPath(c)
	if !ok {
		return
	}

	var req AddFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.walletService.AddFunds(c.Request.Context(), residentID, req.Amount, req.Method, middleware.GetCorrelationID(c))
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			RespondBadRequest(c, "Amount must be positive")
			return
		}
		h.logger.Error("Failed to add funds", "resident_id", residentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWalletToResponse(w, nil))
}
