package application

import (
	"context"
	"time"

	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
)

// CatalogApplicationService 商品目录服务门面，整合命令服务和查询服务
type CatalogApplicationService struct {
	commandService *CatalogCommandService
	queryService   *CatalogQueryService
}

// NewCatalogApplicationService 创建商品目录服务门面实例
func NewCatalogApplicationService(
	products domain.ProductRepository,
	stores domain.StoreRepository,
	cache domain.ProductCache,
	publisher domain.EventPublisher,
	cacheTTL time.Duration,
) *CatalogApplicationService {
	return &CatalogApplicationService{
		commandService: NewCatalogCommandService(products, stores, cache, publisher),
		queryService:   NewCatalogQueryService(products, stores, cache, cacheTTL),
	}
}

// ObserveCache 设置商品缓存命中回调
func (s *CatalogApplicationService) ObserveCache(fn func(hit bool)) {
	s.queryService.ObserveCache(fn)
}

// CreateStore 创建店铺
func (s *CatalogApplicationService) CreateStore(ctx context.Context, cmd CreateStoreCommand) (*domain.Store, error) {
	return s.commandService.CreateStore(ctx, cmd)
}

// CreateProduct 创建商品
func (s *CatalogApplicationService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	return s.commandService.CreateProduct(ctx, cmd)
}

// UpdateStock 更新库存
func (s *CatalogApplicationService) UpdateStock(ctx context.Context, cmd UpdateStockCommand) (*domain.Product, error) {
	return s.commandService.UpdateStock(ctx, cmd)
}

// InvalidateProduct 失效商品缓存
func (s *CatalogApplicationService) InvalidateProduct(ctx context.Context, ids ...string) error {
	return s.commandService.InvalidateProduct(ctx, ids...)
}

// GetStore 获取店铺
func (s *CatalogApplicationService) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	return s.queryService.GetStore(ctx, id)
}

// GetProduct 获取店铺下的商品
func (s *CatalogApplicationService) GetProduct(ctx context.Context, storeID, productID string) (*domain.Product, error) {
	return s.queryService.GetProduct(ctx, storeID, productID)
}

// ListProducts 列出商品
func (s *CatalogApplicationService) ListProducts(ctx context.Context, storeID, category string, page, size int) ([]*domain.Product, int, error) {
	return s.queryService.ListProducts(ctx, storeID, category, page, size)
}
