package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound 商品或店铺不存在
	ErrNotFound = errors.New("catalog entity not found")
	// ErrInvalidProduct 商品字段非法
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidStore 店铺字段非法
	ErrInvalidStore = errors.New("invalid store")
)

// Store 店铺，店铺展示字段会被购物车行冗余保存
type Store struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Slug        string    `gorm:"column:slug;type:varchar(128);uniqueIndex;not null" json:"slug"`
	AccentColor string    `gorm:"column:accent_color;type:varchar(16)" json:"accent_color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Store) TableName() string { return "stores" }

// Validate 校验店铺
func (s *Store) Validate() error {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Slug) == "" {
		return ErrInvalidStore
	}
	return nil
}

// Product 商品，数字商品不受库存约束
type Product struct {
	ID          string          `gorm:"column:id;primaryKey;size:36" json:"id"`
	StoreID     string          `gorm:"column:store_id;size:36;index;not null" json:"store_id"`
	Name        string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	IsDigital   bool            `gorm:"column:is_digital;not null;default:false" json:"is_digital"`
	ImageURL    string          `gorm:"column:image_url;type:varchar(512)" json:"image_url,omitempty"`
	Category    string          `gorm:"column:category;type:varchar(100);index" json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// Validate 校验商品
func (p *Product) Validate() error {
	if p.StoreID == "" || strings.TrimSpace(p.Name) == "" {
		return ErrInvalidProduct
	}
	if p.Price.IsNegative() || p.Stock < 0 {
		return ErrInvalidProduct
	}
	return nil
}

// Available 商品当前能否加入购物车
func (p *Product) Available() bool {
	return p.IsDigital || p.Stock > 0
}
