package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
)

const (
	fieldPayload = "payload"
	fieldVersion = "version"
)

// Repository 每个会话一个 hash，包含 payload 和 version 两个字段
type Repository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRepository 创建基于 Redis 的购物车仓储，ttl 为 0 时永不过期
func NewRepository(client redis.UniversalClient, prefix string, ttl time.Duration) *Repository {
	if prefix == "" {
		prefix = "cart:session:"
	}
	return &Repository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Repository) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *Repository) Load(ctx context.Context, sessionID string) (*domain.StoredCart, error) {
	vals, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cart from redis: %w", err)
	}
	if len(vals) == 0 {
		return &domain.StoredCart{}, nil
	}
	return &domain.StoredCart{Payload: []byte(vals[fieldPayload]), Version: parseVersion(vals[fieldVersion])}, nil
}

// parseVersion 缺失或损坏的版本号视为 0，Load 与 Save 使用同一口径，损坏的槽位可被覆盖
func parseVersion(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (r *Repository) Save(ctx context.Context, sessionID string, payload []byte, expectedVersion int64) (int64, error) {
	key := r.key(sessionID)
	next := expectedVersion + 1

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, fieldVersion).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if parseVersion(raw) != expectedVersion {
			return domain.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldPayload, payload, fieldVersion, next)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, domain.ErrVersionConflict
	default:
		return 0, fmt.Errorf("failed to save cart to redis: %w", err)
	}
}

func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart from redis: %w", err)
	}
	return nil
}
