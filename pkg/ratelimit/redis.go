package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter 多实例共享配额
type RedisRateLimiter struct {
	gcra *redis_rate.Limiter
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{gcra: redis_rate.NewLimiter(rdb)}
}

// Allow Redis 不可用时返回错误，由调用方决定是否放行
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	rule := redis_rate.Limit{Rate: limit.Rate, Period: limit.Period, Burst: limit.Burst}
	out, err := r.gcra.Allow(ctx, key, rule)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis allow %s: %w", key, err)
	}
	return &Result{
		Allowed:    out.Allowed > 0,
		Remaining:  out.Remaining,
		RetryAfter: out.RetryAfter,
		ResetAfter: out.ResetAfter,
	}, nil
}
