package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalRateLimiter()
	l.now = func() time.Time { return now }

	limit := Limit{Rate: 2, Period: time.Second, Burst: 2}

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "ip", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "ip", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// 其他 key 不受影响
	res, err = l.Allow(ctx, "other", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(500 * time.Millisecond)
	res, err = l.Allow(ctx, "ip", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalRateLimiter_InvalidLimit(t *testing.T) {
	_, err := NewLocalRateLimiter().Allow(context.Background(), "k", Limit{})
	assert.Error(t, err)
}

func TestLocalRateLimiter_EvictsRefilledBuckets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalRateLimiter()
	l.now = func() time.Time { return now }
	limit := Limit{Rate: 1, Period: time.Second, Burst: 5}

	for _, ip := range []string{"a", "b", "c"} {
		_, err := l.Allow(ctx, ip, limit)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.Len())

	// 未到清理间隔，桶保留
	now = now.Add(30 * time.Second)
	_, err := l.Allow(ctx, "a", limit)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	// 三个桶都已补满被删除，随后只有 a 重新创建
	now = now.Add(31 * time.Second)
	for i := 0; i < 5; i++ {
		_, err = l.Allow(ctx, "a", limit)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, l.Len())

	res, err := l.Allow(ctx, "b", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}
