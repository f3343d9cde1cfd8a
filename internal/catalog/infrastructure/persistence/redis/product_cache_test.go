package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/cache"
)

func TestProductCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	c := NewProductCache(rc)

	_, hit, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, hit)

	p := &domain.Product{ID: "p1", StoreID: "s1", Name: "Kopi", Price: decimal.RequireFromString("15000.50"), Stock: 3}
	require.NoError(t, c.Set(ctx, p, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("catalog:product:p1"))

	got, hit, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "Kopi", got.Name)
	assert.True(t, got.Price.Equal(p.Price))
	assert.Equal(t, 3, got.Stock)

	require.NoError(t, c.Invalidate(ctx, "p1", "p2"))
	_, hit, err = c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, hit)
}
