package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/cache"
)

// ProductCache 基于 Redis 的商品读缓存
type ProductCache struct {
	cache  *cache.RedisCache
	prefix string
}

// NewProductCache 创建商品缓存
func NewProductCache(rc *cache.RedisCache) *ProductCache {
	return &ProductCache{
		cache:  rc,
		prefix: "catalog:product:",
	}
}

func (c *ProductCache) Get(ctx context.Context, id string) (*domain.Product, bool, error) {
	var p domain.Product
	hit, err := c.cache.GetJSON(ctx, c.prefix+id, &p)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get product from redis: %w", err)
	}
	if !hit {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *ProductCache) Set(ctx context.Context, product *domain.Product, ttl time.Duration) error {
	if product == nil || product.ID == "" {
		return nil
	}
	return c.cache.SetJSON(ctx, c.prefix+product.ID, product, ttl)
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.prefix+id)
	}
	return c.cache.Delete(ctx, keys...)
}
