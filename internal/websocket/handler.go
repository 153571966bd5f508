package websocket

import (
	"context"
	"net/http"
	"time"

	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"
	"sentinal-safety/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Presence records which users have live sockets so delivery can skip
// offline parties.
type Presence interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	Heartbeat(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
}

type Handler struct {
	auth     *services.AuthService
	hub      *Hub
	presence Presence
	upgrader websocket.Upgrader
}

// NewHandler builds the /ws handler. presence may be nil.
func NewHandler(auth *services.AuthService, hub *Hub, presence Presence) *Handler {
	return &Handler{
		auth:     auth,
		hub:      hub,
		presence: presence,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect upgrades the request into a receive-only live session. The access
// token travels in the query string since browsers cannot set headers on a
// websocket handshake.
func (h *Handler) Connect(c *gin.Context) {
	principal, err := h.auth.ParseAccessToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	log := logger.GetGlobalLogger().WithContext(c.Request.Context()).With(zap.String("user_id", principal.UserID.String()))
	client := NewClient(conn, principal.UserID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	h.setPresence(ctx, log, h.presenceOnline, principal.UserID)
	go client.WriteLoop(ctx, func() {
		h.setPresence(ctx, log, h.presenceHeartbeat, principal.UserID)
	})

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	h.hub.Unregister(client)
	h.setPresence(context.Background(), log, h.presenceOffline, principal.UserID)
}

func (h *Handler) presenceOnline(ctx context.Context, id uuid.UUID) error {
	return h.presence.SetOnline(ctx, id)
}

func (h *Handler) presenceHeartbeat(ctx context.Context, id uuid.UUID) error {
	return h.presence.Heartbeat(ctx, id)
}

func (h *Handler) presenceOffline(ctx context.Context, id uuid.UUID) error {
	return h.presence.SetOffline(ctx, id)
}

func (h *Handler) setPresence(ctx context.Context, log *zap.Logger, fn func(context.Context, uuid.UUID) error, id uuid.UUID) {
	if h.presence == nil {
		return
	}
	if err := fn(ctx, id); err != nil {
		log.Warn("presence update failed", zap.Error(err))
	}
}
