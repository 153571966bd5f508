package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub tracks the live sockets of each user on this node.
type Hub struct {
	mu sync.RWMutex

	// users maps a user to the set of their open connections
	users map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{users: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[client.UserID] = set
	}
	set[client] = struct{}{}
}

// Unregister forgets the client and closes its Send channel, which stops its
// write loop.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.users, client.UserID)
	}
	close(client.Send)
}

// BroadcastToUser queues payload on every connection of userID.
func (h *Hub) BroadcastToUser(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.SendMessage(payload)
	}
	return len(h.users[userID])
}

// Push delivers to local connections only. It serves as the delivery port
// when no Redis is configured and the process runs a single node.
func (h *Hub) Push(_ context.Context, party uuid.UUID, payload []byte) error {
	h.BroadcastToUser(party, payload)
	return nil
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.users {
		n += len(set)
	}
	return n
}
