package domain

import (
	"errors"
	"fmt"
)

// Outcome 命令执行结果
type Outcome string

const (
	// OutcomeApplied 状态已变更，需要持久化
	OutcomeApplied Outcome = "applied"
	// OutcomeUnchanged 合法的空操作，例如移除不存在的行
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeInsufficientStock 实物商品库存不足，购物车保持不变
	OutcomeInsufficientStock Outcome = "insufficient_stock"
)

// Result 购物车命令的显式返回值
type Result struct {
	Outcome Outcome
	// Quantity 命令执行后该行的数量，行不存在时为 0
	Quantity int
	// Requested 库存不足时请求达到的数量
	Requested int
	// Available 库存不足时已知的库存
	Available int
}

// Changed 是否需要持久化
func (r Result) Changed() bool { return r.Outcome == OutcomeApplied }

// Rejected 是否因库存被拒绝
func (r Result) Rejected() bool { return r.Outcome == OutcomeInsufficientStock }

// ErrInsufficientStock 库存不足
var ErrInsufficientStock = errors.New("insufficient stock")

// StockError 携带被拒绝的请求细节
type StockError struct {
	ProductID string
	StoreID   string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s in store %s: requested %d, available %d",
		e.ProductID, e.StoreID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// NewStockError 由被拒绝的结果构造错误
func NewStockError(key LineKey, r Result) *StockError {
	return &StockError{
		ProductID: key.ProductID,
		StoreID:   key.StoreID,
		Requested: r.Requested,
		Available: r.Available,
	}
}
