package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Local keeps one token bucket per user and bucket in memory. Quotas are not
// shared between nodes, so it only suits single-node deployments.
type Local struct {
	config Config
	now    func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocal(config Config) *Local {
	return &Local{
		config:   config,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (l *Local) Allow(_ context.Context, bucket, userID string) (*Result, error) {
	limit, window, err := l.config.Quota(bucket)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || window <= 0 {
		return &Result{Allowed: true, Limit: limit}, nil
	}

	now := l.now()
	lim := l.limiter(bucket+":"+userID, limit, window, now)
	every := window / time.Duration(limit)

	if !lim.AllowN(now, 1) {
		wait := time.Duration((1 - lim.TokensAt(now)) * float64(every))
		return &Result{Allowed: false, ResetIn: wait, Limit: limit}, nil
	}
	remaining := int(lim.TokensAt(now))
	return &Result{
		Allowed:   true,
		Remaining: remaining,
		ResetIn:   time.Duration(limit-remaining) * every,
		Limit:     limit,
	}, nil
}

func (l *Local) limiter(key string, limit int, window time.Duration, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Prune forgets users idle for longer than idle. Their next request starts
// with a full bucket.
func (l *Local) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	pruned := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			pruned++
		}
	}
	return pruned
}

// RunPruner calls Prune every interval until ctx is cancelled.
func (l *Local) RunPruner(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(idle)
		}
	}
}
