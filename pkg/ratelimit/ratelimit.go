// Package ratelimit 限流器抽象：有 Redis 时用 redis_rate（GCRA），否则用进程内令牌桶
package ratelimit

import (
	"context"
	"time"
)

// RateLimiter 每次调用消耗 key 的一个配额
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 每 Period 允许 Rate 次，Burst 为瞬时上限
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerSecond 构造按秒计的 Limit，burst 不大于 0 时取 rate
func PerSecond(rate, burst int) Limit {
	if burst <= 0 {
		burst = rate
	}
	return Limit{Rate: rate, Period: time.Second, Burst: burst}
}

// Result 单次判定结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}
