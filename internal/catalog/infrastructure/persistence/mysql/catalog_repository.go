package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate 创建商品目录相关表
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&domain.Store{}, &domain.Product{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

type storeRepository struct{ db *gorm.DB }

// NewStoreRepository 创建店铺仓储
func NewStoreRepository(gdb *gorm.DB) domain.StoreRepository {
	return &storeRepository{db: gdb}
}

func (r *storeRepository) Save(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *storeRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	var s domain.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

type productRepository struct{ db *gorm.DB }

// NewProductRepository 创建商品仓储
func NewProductRepository(gdb *gorm.DB) domain.ProductRepository {
	return &productRepository{db: gdb}
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	var products []*domain.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if filter.StoreID != "" {
		q = q.Where("store_id = ?", filter.StoreID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	err := q.Order("created_at ASC").Offset(filter.Offset).Limit(limit).Find(&products).Error
	return products, int(total), err
}

func (r *productRepository) UpdateStock(ctx context.Context, id string, stock int) (int, error) {
	var old int
	err := db.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&p).Error; err != nil {
			return notFound(err)
		}
		old = p.Stock
		return tx.Model(&domain.Product{}).Where("id = ?", id).Update("stock", stock).Error
	})
	if err != nil {
		return 0, fmt.Errorf("update stock: %w", err)
	}
	return old, nil
}
