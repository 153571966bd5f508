package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(cfg Config) (*Local, *time.Time) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewLocal(cfg)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLocalExhaustsAndRefills(t *testing.T) {
	l, now := newTestLocal(Config{MessageLimit: 3, MessageWindow: time.Minute, ReportLimit: 1, ReportWindow: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, BucketMessages, "alice")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := l.Allow(ctx, BucketMessages, "alice")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 20*time.Second, res.ResetIn)

	*now = now.Add(21 * time.Second)
	res, err = l.Allow(ctx, BucketMessages, "alice")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Remaining)
}

func TestLocalBucketsAndUsersAreIndependent(t *testing.T) {
	l, _ := newTestLocal(Config{MessageLimit: 1, MessageWindow: time.Minute, ReportLimit: 1, ReportWindow: time.Hour})
	ctx := context.Background()

	res, err := l.Allow(ctx, BucketMessages, "alice")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, BucketReports, "alice")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, BucketMessages, "bob")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, BucketMessages, "alice")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestLocalUnknownBucketAndDisabledLimit(t *testing.T) {
	l, _ := newTestLocal(Config{MessageLimit: 0, MessageWindow: time.Minute})
	ctx := context.Background()

	_, err := l.Allow(ctx, "uploads", "alice")
	assert.Error(t, err)

	for i := 0; i < 100; i++ {
		res, err := l.Allow(ctx, BucketMessages, "alice")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
}

func TestLocalPrune(t *testing.T) {
	l, now := newTestLocal(DefaultConfig())
	ctx := context.Background()

	_, err := l.Allow(ctx, BucketMessages, "alice")
	require.NoError(t, err)
	*now = now.Add(time.Hour)
	_, err = l.Allow(ctx, BucketMessages, "bob")
	require.NoError(t, err)

	assert.Equal(t, 1, l.Prune(30*time.Minute))
	assert.Len(t, l.visitors, 1)
}
