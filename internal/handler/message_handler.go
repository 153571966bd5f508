package handler

import (
	"net/http"

	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	senderID, ok := caller(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	replyTo, err := optionalID(req.ReplyTo)
	if err != nil {
		badRequest(c, "invalid reply_to")
		return
	}

	msg, err := h.service.Send(c.Request.Context(), services.SendInput{
		RoomID:   roomID,
		SenderID: senderID,
		Type:     message.Type(req.Type),
		Content:  req.Content,
		ReplyTo:  replyTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

// List returns a page of visible messages, oldest first, and marks the
// counterpart's messages as read.
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := pageParams(c)
	items, err := h.service.FetchMessages(c.Request.Context(), roomID, userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessages(items)))
}

func (h *MessageHandler) Retract(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Retract(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
