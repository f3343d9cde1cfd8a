package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
)

// CreateStoreCommand 创建店铺命令
type CreateStoreCommand struct {
	Name        string
	Slug        string
	AccentColor string
}

// CreateProductCommand 创建商品命令
type CreateProductCommand struct {
	StoreID     string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	IsDigital   bool
	ImageURL    string
	Category    string
}

// UpdateStockCommand 更新库存命令
type UpdateStockCommand struct {
	ProductID string
	Stock     int
}

// CatalogCommandService 商品目录命令服务
type CatalogCommandService struct {
	products  domain.ProductRepository
	stores    domain.StoreRepository
	cache     domain.ProductCache
	publisher domain.EventPublisher
}

// NewCatalogCommandService 创建商品目录命令服务实例
func NewCatalogCommandService(
	products domain.ProductRepository,
	stores domain.StoreRepository,
	cache domain.ProductCache,
	publisher domain.EventPublisher,
) *CatalogCommandService {
	return &CatalogCommandService{
		products:  products,
		stores:    stores,
		cache:     cache,
		publisher: publisher,
	}
}

// CreateStore 处理创建店铺
func (s *CatalogCommandService) CreateStore(ctx context.Context, cmd CreateStoreCommand) (*domain.Store, error) {
	store := &domain.Store{
		ID:          uuid.NewString(),
		Name:        cmd.Name,
		Slug:        cmd.Slug,
		AccentColor: cmd.AccentColor,
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	if err := s.stores.Save(ctx, store); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicStoreCreated, store.ID, domain.StoreCreatedEvent{
		StoreID:   store.ID,
		Name:      store.Name,
		Slug:      store.Slug,
		Timestamp: time.Now(),
	})
	return store, nil
}

// CreateProduct 处理创建商品，店铺必须存在
func (s *CatalogCommandService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	product := &domain.Product{
		ID:          uuid.NewString(),
		StoreID:     cmd.StoreID,
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		IsDigital:   cmd.IsDigital,
		ImageURL:    cmd.ImageURL,
		Category:    cmd.Category,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.stores.GetByID(ctx, cmd.StoreID); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicProductCreated, product.ID, domain.ProductCreatedEvent{
		ProductID: product.ID,
		StoreID:   product.StoreID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		IsDigital: product.IsDigital,
		Category:  product.Category,
		Timestamp: time.Now(),
	})
	return product, nil
}

// UpdateStock 处理库存更新，库存发生变化时失效缓存并发布事件
func (s *CatalogCommandService) UpdateStock(ctx context.Context, cmd UpdateStockCommand) (*domain.Product, error) {
	if cmd.Stock < 0 {
		return nil, domain.ErrInvalidProduct
	}
	old, err := s.products.UpdateStock(ctx, cmd.ProductID, cmd.Stock)
	if err != nil {
		return nil, err
	}

	if err := s.InvalidateProduct(ctx, cmd.ProductID); err != nil {
		logger.Warn(ctx, "failed to invalidate product cache", "product_id", cmd.ProductID, "error", err)
	}

	product, err := s.products.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	if old != cmd.Stock {
		s.publish(ctx, domain.TopicProductStockChanged, product.ID, domain.ProductStockChangedEvent{
			ProductID: product.ID,
			StoreID:   product.StoreID,
			OldStock:  old,
			NewStock:  cmd.Stock,
			Timestamp: time.Now(),
		})
	}
	return product, nil
}

// InvalidateProduct 删除商品缓存，其他实例通过库存事件调用
func (s *CatalogCommandService) InvalidateProduct(ctx context.Context, ids ...string) error {
	if s.cache == nil || len(ids) == 0 {
		return nil
	}
	return s.cache.Invalidate(ctx, ids...)
}

func (s *CatalogCommandService) publish(ctx context.Context, topic, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		logger.Warn(ctx, "failed to publish catalog event", "topic", topic, "key", key, "error", err)
	}
}
