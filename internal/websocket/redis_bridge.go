package websocket

import (
	"context"
	"strings"

	"sentinal-safety/internal/redis"

	"github.com/google/uuid"
)

// RedisBridge relays payloads published on any user channel to that user's
// sockets on this node.
type RedisBridge struct {
	subscriber *redis.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber *redis.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	prefix := strings.TrimSuffix(redis.UserChannelPattern, "*")
	return b.subscriber.PSubscribe(ctx, redis.UserChannelPattern, func(channel string, payload []byte) {
		userID, err := uuid.Parse(strings.TrimPrefix(channel, prefix))
		if err != nil {
			return
		}
		b.hub.BroadcastToUser(userID, payload)
	})
}
