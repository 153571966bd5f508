package handler

import (
	"net/http"
	"time"

	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BlockHandler struct {
	service *services.BlockService
}

func NewBlockHandler(service *services.BlockService) *BlockHandler {
	return &BlockHandler{service: service}
}

func (h *BlockHandler) Block(c *gin.Context) {
	var req httpdto.BlockRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	blocker, ok := caller(c)
	if !ok {
		return
	}
	other, ok := pathID(c, "otherParty")
	if !ok {
		return
	}
	if req.DurationMinutes < 0 {
		badRequest(c, "duration_minutes must not be negative")
		return
	}

	b, err := h.service.Block(c.Request.Context(), services.BlockInput{
		BlockerID: blocker,
		BlockedID: other,
		Duration:  time.Duration(req.DurationMinutes) * time.Minute,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromBlock(b)))
}

func (h *BlockHandler) Unblock(c *gin.Context) {
	blocker, ok := caller(c)
	if !ok {
		return
	}
	other, ok := pathID(c, "otherParty")
	if !ok {
		return
	}
	if err := h.service.Unblock(c.Request.Context(), blocker, other); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BlockHandler) List(c *gin.Context) {
	blocker, ok := caller(c)
	if !ok {
		return
	}
	items, err := h.service.ListBlocks(c.Request.Context(), blocker)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromBlocks(items)))
}

// AdminBlock separates two parties in both directions on an admin's
// authority.
func (h *BlockHandler) AdminBlock(c *gin.Context) {
	var req httpdto.AdminBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	a, errA := uuid.Parse(req.PartyA)
	b, errB := uuid.Parse(req.PartyB)
	if errA != nil || errB != nil {
		badRequest(c, "invalid party id")
		return
	}
	if req.DurationMinutes < 0 {
		badRequest(c, "duration_minutes must not be negative")
		return
	}

	items, err := h.service.AdminBlock(c.Request.Context(), adminID, a, b, time.Duration(req.DurationMinutes)*time.Minute, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromBlocks(items)))
}
