package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"sentinal-safety/internal/services"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventsChannel carries trust & safety events for other modules.
const EventsChannel = "safety:events"

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// EventPublisher publishes service events as JSON on EventsChannel.
type EventPublisher struct {
	pub *Publisher
}

func NewEventPublisher(pub *Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

func (e *EventPublisher) Publish(ctx context.Context, evt services.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.Type, err)
	}
	return e.pub.Publish(ctx, EventsChannel, data)
}

// Delivery pushes payloads to a user's live sessions over pub/sub. Offline
// users are skipped; they catch up on their next fetch.
type Delivery struct {
	pub      *Publisher
	presence *PresenceStore
}

func NewDelivery(pub *Publisher, presence *PresenceStore) *Delivery {
	return &Delivery{pub: pub, presence: presence}
}

func (d *Delivery) Push(ctx context.Context, party uuid.UUID, payload []byte) error {
	online, err := d.presence.IsOnline(ctx, party)
	if err != nil {
		return err
	}
	if !online {
		return nil
	}
	return d.pub.Publish(ctx, UserChannel(party), payload)
}
