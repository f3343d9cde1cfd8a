package application

import (
	"context"
	"time"

	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"github.com/wyfcoding/gouwadan/pkg/utils"
)

// CatalogQueryService 商品目录查询服务，商品读取走缓存旁路
type CatalogQueryService struct {
	products domain.ProductRepository
	stores   domain.StoreRepository
	cache    domain.ProductCache
	cacheTTL time.Duration
	observe  func(hit bool)
}

// NewCatalogQueryService 创建商品目录查询服务实例，cache 可为 nil
func NewCatalogQueryService(
	products domain.ProductRepository,
	stores domain.StoreRepository,
	cache domain.ProductCache,
	cacheTTL time.Duration,
) *CatalogQueryService {
	return &CatalogQueryService{
		products: products,
		stores:   stores,
		cache:    cache,
		cacheTTL: cacheTTL,
		observe:  func(bool) {},
	}
}

// ObserveCache 设置缓存命中回调，用于指标统计
func (s *CatalogQueryService) ObserveCache(fn func(hit bool)) {
	if fn != nil {
		s.observe = fn
	}
}

// GetStore 根据ID获取店铺
func (s *CatalogQueryService) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	return s.stores.GetByID(ctx, id)
}

// GetProduct 获取店铺下的商品，商品不属于该店铺时视为不存在
func (s *CatalogQueryService) GetProduct(ctx context.Context, storeID, productID string) (*domain.Product, error) {
	p, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if storeID != "" && p.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *CatalogQueryService) getProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		p, hit, err := s.cache.Get(ctx, id)
		if err != nil {
			logger.Warn(ctx, "product cache read failed", "product_id", id, "error", err)
		} else {
			s.observe(hit)
			if hit {
				return p, nil
			}
		}
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p, s.cacheTTL); err != nil {
			logger.Warn(ctx, "product cache write failed", "product_id", id, "error", err)
		}
	}
	return p, nil
}

// ListProducts 列出商品，page 从 1 开始
func (s *CatalogQueryService) ListProducts(ctx context.Context, storeID, category string, page, size int) ([]*domain.Product, int, error) {
	p := utils.NewPagination(page, size, 0)
	return s.products.List(ctx, domain.ProductFilter{
		StoreID:  storeID,
		Category: category,
		Offset:   p.Offset(),
		Limit:    p.Limit(),
	})
}
