package application

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
)

// CartSummary 购物车概览
type CartSummary struct {
	SessionID string              `json:"session_id"`
	Lines     []domain.CartLine   `json:"lines"`
	ItemCount int                 `json:"item_count"`
	Total     decimal.Decimal     `json:"total"`
	Stores    []domain.StoreGroup `json:"stores"`
}

// LineStatus 单行在购物车中的状态
type LineStatus struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	InCart    bool   `json:"in_cart"`
	Quantity  int    `json:"quantity"`
}

// 复核问题原因
const (
	IssueInsufficientStock = "insufficient_stock"
	IssueUnavailable       = "unavailable"
)

// StockIssue 结算前复核发现的问题行
type StockIssue struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Reason    string `json:"reason"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
}

func newSummary(sessionID string, cart *domain.Cart) *CartSummary {
	return &CartSummary{
		SessionID: sessionID,
		Lines:     cart.Lines(),
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
		Stores:    cart.GroupByStore(),
	}
}
