// Package ratelimit defines the per-user quotas charged by the HTTP layer and
// an in-process implementation used when Redis is not configured.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Bucket names accepted by Allow.
const (
	BucketMessages = "messages"
	BucketReports  = "reports"
)

// Config contains configuration for rate limiting
type Config struct {
	MessageLimit  int           // Max messages per window
	MessageWindow time.Duration // Message rate limit window
	ReportLimit   int           // Max reports per window
	ReportWindow  time.Duration // Report rate limit window
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MessageLimit:  60,
		MessageWindow: time.Minute,
		ReportLimit:   20,
		ReportWindow:  time.Hour,
	}
}

// Quota returns the limit and window configured for bucket.
func (c Config) Quota(bucket string) (int, time.Duration, error) {
	switch bucket {
	case BucketMessages:
		return c.MessageLimit, c.MessageWindow, nil
	case BucketReports:
		return c.ReportLimit, c.ReportWindow, nil
	}
	return 0, 0, fmt.Errorf("unknown rate limit bucket %q", bucket)
}

// Result contains the result of a rate limit check
type Result struct {
	Allowed   bool          // Whether the action is allowed
	Remaining int           // Remaining actions in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this action
}

// Limiter consumes one unit of a user's quota for bucket.
type Limiter interface {
	Allow(ctx context.Context, bucket, userID string) (*Result, error)
}
