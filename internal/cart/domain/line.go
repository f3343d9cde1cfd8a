package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot 加入购物车时由调用方提供的商品快照
type ProductSnapshot struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	IsDigital bool
	Image     string
	Category  string
}

// StoreSnapshot 加入购物车时由调用方提供的店铺快照
type StoreSnapshot struct {
	ID          string
	Name        string
	Slug        string
	AccentColor string
}

// LineKey 购物车行的唯一键
type LineKey struct {
	ProductID string
	StoreID   string
}

// CartLine 购物车中的一行，店铺展示字段在加入时冗余保存，不再回查
type CartLine struct {
	ProductID   string          `json:"productId"`
	StoreID     string          `json:"storeId"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ImageRef    string          `json:"imageRef,omitempty"`
	Category    string          `json:"category,omitempty"`
	Quantity    int             `json:"quantity"`
	InStock     int             `json:"inStock"`
	IsDigital   bool            `json:"isDigital"`
	StoreName   string          `json:"storeName"`
	StoreSlug   string          `json:"storeSlug"`
	StoreAccent string          `json:"storeAccent,omitempty"`
	AddedAt     time.Time       `json:"addedAt"`
}

// Key 返回行键
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, StoreID: l.StoreID}
}

// Subtotal 单价乘以数量
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MaxLineQuantity 单行数量上限，数字商品同样受限，保证跨行合计不会溢出 int
const MaxLineQuantity = 100000

// quantityCeiling 一行允许的最大数量：实物商品取库存与上限的较小值
func quantityCeiling(isDigital bool, stock int) int {
	if isDigital {
		return MaxLineQuantity
	}
	return min(stock, MaxLineQuantity)
}

// exceedsStock 数量超过已知库存或单行上限
func (l CartLine) exceedsStock(quantity int) bool {
	return quantity > quantityCeiling(l.IsDigital, l.InStock)
}

// StoreGroup 按店铺分组后的视图
type StoreGroup struct {
	StoreID     string          `json:"storeId"`
	StoreName   string          `json:"storeName"`
	StoreSlug   string          `json:"storeSlug"`
	StoreAccent string          `json:"storeAccent,omitempty"`
	Lines       []CartLine      `json:"lines"`
	ItemCount   int             `json:"itemCount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
