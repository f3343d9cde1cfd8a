package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 商品目录事件主题
const (
	TopicStoreCreated        = "store.created"
	TopicProductCreated      = "product.created"
	TopicProductStockChanged = "product.stock.changed"
)

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// StoreCreatedEvent 店铺创建事件
type StoreCreatedEvent struct {
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductCreatedEvent 商品创建事件
type ProductCreatedEvent struct {
	ProductID string          `json:"product_id"`
	StoreID   string          `json:"store_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsDigital bool            `json:"is_digital"`
	Category  string          `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProductStockChangedEvent 商品库存变更事件
type ProductStockChangedEvent struct {
	ProductID string    `json:"product_id"`
	StoreID   string    `json:"store_id"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	Timestamp time.Time `json:"timestamp"`
}
