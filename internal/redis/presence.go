package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Redis key prefixes for presence
const (
	presenceKeyPrefix = "presence:"       // String holding the session count, refreshed by heartbeats
	presenceOnlineSet = "presence:online" // Set of online user IDs
	userChannelPrefix = "safety:user:"    // Pub/sub channel per user for live delivery
)

// UserChannel is the pub/sub channel a user's live sessions listen on.
func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// UserChannelPattern matches every UserChannel.
const UserChannelPattern = userChannelPrefix + "*"

// PresenceStore tracks which users have a live session. A user stays online
// while at least one session keeps heartbeating within ttl.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

// SetOnline registers one more live session for the user.
func (p *PresenceStore) SetOnline(ctx context.Context, userID uuid.UUID) error {
	key := presenceKeyPrefix + userID.String()
	pipe := p.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

// Heartbeat extends the user's presence for another ttl.
func (p *PresenceStore) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return p.client.Expire(ctx, presenceKeyPrefix+userID.String(), p.ttl).Err()
}

// SetOffline drops one live session. The user goes offline with the last one.
func (p *PresenceStore) SetOffline(ctx context.Context, userID uuid.UUID) error {
	key := presenceKeyPrefix + userID.String()
	remaining, err := p.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	pipe := p.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, presenceOnlineSet, userID.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := p.client.Exists(ctx, presenceKeyPrefix+userID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineCount returns the number of users with a registered session. Entries
// whose presence key expired without a clean disconnect are pruned lazily.
func (p *PresenceStore) OnlineCount(ctx context.Context) (int64, error) {
	members, err := p.client.SMembers(ctx, presenceOnlineSet).Result()
	if err != nil {
		return 0, err
	}
	var online int64
	for _, m := range members {
		n, err := p.client.Exists(ctx, presenceKeyPrefix+m).Result()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			online++
			continue
		}
		p.client.SRem(ctx, presenceOnlineSet, m)
	}
	return online, nil
}
