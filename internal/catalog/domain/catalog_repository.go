package domain

import (
	"context"
	"time"
)

// ProductFilter 商品列表过滤条件
type ProductFilter struct {
	StoreID  string
	Category string
	Offset   int
	Limit    int
}

// StoreRepository 店铺仓储
type StoreRepository interface {
	Save(ctx context.Context, store *Store) error
	GetByID(ctx context.Context, id string) (*Store, error)
}

// ProductRepository 商品仓储，查询不到时返回 ErrNotFound
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int, error)
	// UpdateStock 覆盖库存并返回旧值
	UpdateStock(ctx context.Context, id string, stock int) (int, error)
}

// ProductCache 商品读缓存
type ProductCache interface {
	Get(ctx context.Context, id string) (*Product, bool, error)
	Set(ctx context.Context, product *Product, ttl time.Duration) error
	Invalidate(ctx context.Context, ids ...string) error
}
