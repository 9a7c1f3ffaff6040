package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/api_gateway/middleware"
	"github.com/ecocollect-billing/internal/api_gateway/service"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/shared"
	"github.com/ecocollect-billing/internal/domain/wallet"
	"github.com/ecocollect-billing/internal/settlement"
)

// BillHandler handles HTTP requests for bill and payment operations
type BillHandler struct {
	billService    service.BillService
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewBillHandler creates a new bill handler
func NewBillHandler(logger *slog.Logger, billService service.BillService, paymentService service.PaymentService) *BillHandler {
	return &BillHandler{
		billService:    billService,
		paymentService: paymentService,
		logger:         logger,
	}
}

// ListMyBills returns the caller's bills, optionally filtered by status
func (h *BillHandler) ListMyBills(c *gin.Context) {
	residentID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	statusFilter := bill.Status(c.Query("status"))
	if statusFilter != "" && !bill.ValidStatus(statusFilter) {
		RespondBadRequest(c, "Invalid status filter")
		return
	}

	bills, err := h.billService.ListMyBills(c.Request.Context(), residentID, statusFilter)
	if err != nil {
		h.logger.Error("Failed to list bills", "resident_id", residentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := BillListResponse{Bills: make([]BillResponse, 0, len(bills))}
	for _, b := range bills {
		response.Bills = append(response.Bills, mapBillToResponse(b))
	}
	RespondOK(c, response)
}

// CheckOutstanding reports whether the caller may schedule a new collection
func (h *BillHandler) CheckOutstanding(c *gin.Context) {
	residentID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	check, err := h.billService.CheckOutstanding(c.Request.Context(), residentID)
	if err != nil {
		h.logger.Error("Failed to check outstanding bills", "resident_id", residentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, check)
}

// Pay settles a single bill
func (h *BillHandler) Pay(c *gin.Context) {
	residentID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid bill ID")
		return
	}

	var req PayBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	summary, err := h.paymentService.Pay(c.Request.Context(), &settlement.Request{
		ResidentID:    residentID,
		BillIDs:       []uuid.UUID{billID},
		Method:        shared.PaymentMethod(req.PaymentMethod),
		ApplyRewards:  req.ApplyRewards,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	RespondOK(c, mapSummaryToResponse(summary))
}

// PayMultiple settles a batch of bills under one shared reference
func (h *BillHandler) PayMultiple(c *gin.Context) {
	residentID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req PayMultipleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	billIDs := make([]uuid.UUID, 0, len(req.BillIDs))
	for _, raw := range req.BillIDs {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			RespondBadRequest(c, "Invalid bill ID: "+raw)
			return
		}
		billIDs = append(billIDs, id)
	}

	summary, err := h.paymentService.Pay(c.Request.Context(), &settlement.Request{
		ResidentID:    residentID,
		BillIDs:       billIDs,
		Method:        shared.PaymentMethod(req.PaymentMethod),
		UseWallet:     req.UseWallet,
		ApplyRewards:  req.ApplyRewards,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	RespondOK(c, mapSummaryToResponse(summary))
}

// Generate creates the bill for a collection on behalf of an admin
func (h *BillHandler) Generate(c *gin.Context) {
	collectionID, err := uuid.Parse(c.Param("collectionId"))
	if err != nil {
		RespondBadRequest(c, "Invalid collection ID")
		return
	}

	var req GenerateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	residentID, err := uuid.Parse(req.ResidentID)
	if err != nil {
		RespondBadRequest(c, "Invalid resident ID")
		return
	}

	callerID, _ := middleware.GetResidentID(c)
	b, err := h.billService.GenerateForCollection(
		c.Request.Context(),
		residentID,
		collectionID,
		req.WasteCategory,
		req.WeightKg,
		callerID.String(),
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		if errors.Is(err, bill.ErrInvalidWeight) || errors.Is(err, shared.ErrInvalidWeight) {
			RespondBadRequest(c, "Collected weight must be positive")
			return
		}
		h.logger.Error("Failed to generate bill", "collection_id", collectionID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapBillToResponse(b))
}

// respondPaymentError maps settlement failures onto HTTP responses
func (h *BillHandler) respondPaymentError(c *gin.Context, err error) {
	var notFound bill.ErrBillNotFound
	if errors.As(err, &notFound) {
		RespondNotFound(c, "Bill not found: "+notFound.BillID.String())
		return
	}

	var notOwned bill.ErrNotOwned
	if errors.As(err, &notOwned) {
		RespondForbidden(c, "Bill belongs to another resident")
		return
	}

	var alreadyPaid bill.ErrAlreadyPaid
	if errors.As(err, &alreadyPaid) {
		RespondConflict(c, "Bill already paid: "+alreadyPaid.BillID.String())
		return
	}

	var cancelled bill.ErrBillCancelled
	if errors.As(err, &cancelled) {
		RespondConflict(c, "Bill is cancelled: "+cancelled.BillID.String())
		return
	}

	var insufficient wallet.ErrInsufficientBalance
	if errors.As(err, &insufficient) {
		RespondWithErrorDetails(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE",
			"Wallet balance does not cover the payment",
			gin.H{"balance": insufficient.Balance, "required": insufficient.Required})
		return
	}

	switch {
	case errors.Is(err, settlement.ErrNoBills),
		errors.Is(err, settlement.ErrDuplicateBill),
		errors.Is(err, settlement.ErrUnsupportedMethod),
		errors.Is(err, settlement.ErrNothingContributed):
		RespondBadRequest(c, err.Error())
		return
	}

	h.logger.Error("Payment failed", "error", err)
	RespondInternalError(c)
}
