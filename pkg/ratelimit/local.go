package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// LocalRateLimiter 进程内按 key 的令牌桶，未配置 Redis 时使用
type LocalRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

// sweepInterval 两次清理之间的最短间隔
const sweepInterval = time.Minute

type bucket struct {
	tokens     float64
	lastRefill time.Time
	// fullAt 之后桶已补满，与新建的桶没有区别，可以删除
	fullAt time.Time
}

// NewLocalRateLimiter 桶按需创建，补满后在下一次清理时删除
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// sweep 调用方须持有 mu
func (l *LocalRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if !now.Before(b.fullAt) {
			delete(l.buckets, key)
		}
	}
}

// Len 当前保留的桶数量
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Allow 先按流逝时间补充令牌，再尝试取一个
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid rate limit: rate=%d period=%s", limit.Rate, limit.Period)
	}
	burst := float64(limit.Burst)
	if burst < 1 {
		burst = 1
	}
	perToken := limit.Period / time.Duration(limit.Rate)
	refillRate := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: burst, lastRefill: now}
		l.buckets[key] = b
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(burst, b.tokens+elapsed*refillRate)
	b.lastRefill = now
	defer func() {
		b.fullAt = now.Add(time.Duration((burst - b.tokens) / refillRate * float64(time.Second)))
	}()

	if b.tokens >= 1 {
		b.tokens--
		return &Result{
			Allowed:    true,
			Remaining:  int(b.tokens),
			ResetAfter: time.Duration((burst - b.tokens) / refillRate * float64(time.Second)),
		}, nil
	}

	retry := time.Duration((1 - b.tokens) / refillRate * float64(time.Second))
	if retry <= 0 {
		retry = perToken
	}
	return &Result{
		Allowed:    false,
		Remaining:  0,
		ResetAfter: time.Duration((burst - b.tokens) / refillRate * float64(time.Second)),
		RetryAfter: retry,
	}, nil
}
