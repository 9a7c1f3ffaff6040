package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/api_gateway/middleware"
	"github.com/ecocollect-billing/internal/api_gateway/service"
)

// RewardHandler handles HTTP requests for reward operations
type RewardHandler struct {
	rewardService service.RewardService
	logger        *slog.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(logger *slog.Logger, rewardService service.RewardService) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		logger:        logger,
	}
}

// List returns the resident's rewards split into unused and used. Admins
// may query any resident via ?residentId=; everyone else gets their own.
func (h *RewardHandler) List(c *gin.Context) {
	callerID, ok := middleware.GetResidentID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	residentID := callerID
	if raw := c.Query("residentId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid resident ID")
			return
		}
		if parsed != callerID && middleware.GetResidentRole(c) != middleware.RoleAdmin {
			RespondForbidden(c, "Rewards belong to another resident")
			return
		}
		residentID = parsed
	}

	unused, used, err := h.rewardService.ListRewards(c.Request.Context(), residentID)
	if err != nil {
		h.logger.Error("Failed to list rewards", "resident_id", residentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := RewardListResponse{
		Unused: make([]RewardResponse, 0, len(unused)),
		Used:   make([]RewardResponse, 0, len(used)),
	}
	for _, r := range unused {
		response.Unused = append(response.Unused, mapRewardToResponse(r))
	}
	for _, r := range used {
		response.Used = append(response.Used, mapRewardToResponse(r))
	}
	RespondOK(c, response)
}
