package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 购物车事件主题
const (
	TopicItemAdded       = "cart.item.added"
	TopicQuantityUpdated = "cart.item.quantity_updated"
	TopicItemRemoved     = "cart.item.removed"
	TopicCartCleared     = "cart.cleared"
	TopicStockRejected   = "cart.stock.rejected"
)

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// CartItemAddedEvent 购物车添加商品事件
type CartItemAddedEvent struct {
	SessionID   string          `json:"session_id"`
	ProductID   string          `json:"product_id"`
	StoreID     string          `json:"store_id"`
	Quantity    int             `json:"quantity"`
	NewQuantity int             `json:"new_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Timestamp   time.Time       `json:"timestamp"`
}

// CartQuantityUpdatedEvent 购物车数量变更事件
type CartQuantityUpdatedEvent struct {
	SessionID   string    `json:"session_id"`
	ProductID   string    `json:"product_id"`
	StoreID     string    `json:"store_id"`
	NewQuantity int       `json:"new_quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

// CartItemRemovedEvent 购物车移除商品事件
type CartItemRemovedEvent struct {
	SessionID string    `json:"session_id"`
	ProductID string    `json:"product_id"`
	StoreID   string    `json:"store_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CartClearedEvent 购物车清空事件
type CartClearedEvent struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CartStockRejectedEvent 库存不足被拒绝事件
type CartStockRejectedEvent struct {
	SessionID string    `json:"session_id"`
	ProductID string    `json:"product_id"`
	StoreID   string    `json:"store_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Timestamp time.Time `json:"timestamp"`
}
