package handler

import (
	"context"
	"net/http"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) Open(c *gin.Context) {
	var req httpdto.OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	initiator, ok := caller(c)
	if !ok {
		return
	}
	other, err := uuid.Parse(req.OtherPartyID)
	if err != nil {
		badRequest(c, "invalid other_party_id")
		return
	}

	res, err := h.service.OpenConversation(c.Request.Context(), services.OpenConversationInput{
		Initiator:      initiator,
		OtherParty:     other,
		Context:        conversation.ContextType(req.Context),
		ContextRef:     req.ContextRef,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := httpdto.OpenConversationResponse{
		Conversation: httpdto.FromRoom(res.Room),
		Created:      res.Created,
	}
	out.Conversation.OtherParty = res.Room.OtherParty(initiator).String()
	if res.InitialMessage != nil {
		msg := httpdto.FromMessage(*res.InitialMessage)
		out.InitialMessage = &msg
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, httpdto.NewSuccessResponse(out))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	items, total, err := h.service.ListConversations(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.Page[httpdto.ConversationDTO]{
		Items: httpdto.FromSummaries(items),
		Total: total,
	}))
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.service.GetConversation(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromSummary(item)))
}

func (h *ConversationHandler) Mute(c *gin.Context) {
	h.toggleMute(c, h.service.Mute)
}

func (h *ConversationHandler) Unmute(c *gin.Context) {
	h.toggleMute(c, h.service.Unmute)
}

func (h *ConversationHandler) toggleMute(c *gin.Context, fn func(ctx context.Context, roomID, actor uuid.UUID) (conversation.Room, error)) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	room, err := fn(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoom(room)))
}
