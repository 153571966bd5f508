package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// PSubscribe delivers every message published on a channel matching pattern
// to handler until ctx is cancelled or the connection fails.
func (s *Subscriber) PSubscribe(ctx context.Context, pattern string, handler func(channel string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handler(msg.Channel, []byte(msg.Payload))
	}
}
