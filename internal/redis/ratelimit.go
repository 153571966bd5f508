package redis

import (
	"context"
	"fmt"
	"time"

	"sentinal-safety/internal/ratelimit"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{user_id}:messages - per-minute message sends
// - ratelimit:{user_id}:reports - per-hour report filings

// RateLimiter is the fixed-window limiter shared by every node through Redis.
type RateLimiter struct {
	client *goredis.Client
	config ratelimit.Config
}

func NewRateLimiter(client *goredis.Client, config ratelimit.Config) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// Allow consumes one unit of the user's quota for bucket.
func (r *RateLimiter) Allow(ctx context.Context, bucket, userID string) (*ratelimit.Result, error) {
	limit, window, err := r.config.Quota(bucket)
	if err != nil {
		return nil, err
	}
	return r.checkLimit(ctx, key(userID, bucket), limit, window)
}

func key(userID, bucket string) string {
	return fmt.Sprintf("ratelimit:%s:%s", userID, bucket)
}

// fixedWindow increments the counter and starts the window on first use. It
// returns {allowed, remaining, ttl_seconds}.
var fixedWindow = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		local n = redis.call('INCR', key)
		if n == 1 then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - n, ttl}
	end
	return {0, 0, ttl}
`)

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	if limit <= 0 {
		return &ratelimit.Result{Allowed: true, Limit: limit}, nil
	}
	result, err := fixedWindow.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	return &ratelimit.Result{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetIn:   time.Duration(result[2]) * time.Second,
		Limit:     limit,
	}, nil
}

// ResetUser clears all of a user's quotas (admin operation).
func (r *RateLimiter) ResetUser(ctx context.Context, userID string) error {
	return r.client.Del(ctx, key(userID, ratelimit.BucketMessages), key(userID, ratelimit.BucketReports)).Err()
}
