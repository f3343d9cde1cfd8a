package application

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/gouwadan/internal/cart/domain"
)

var (
	// ErrInvalidInput 会话或商品标识缺失
	ErrInvalidInput = errors.New("invalid input")
	// ErrProductNotFound 商品或店铺不存在
	ErrProductNotFound = errors.New("product not found")
)

// SnapshotProvider 提供加入购物车前的最新商品与店铺快照
type SnapshotProvider interface {
	Snapshot(ctx context.Context, storeID, productID string) (domain.ProductSnapshot, domain.StoreSnapshot, error)
}

// Recorder 购物车指标
type Recorder interface {
	CartMutation(op, outcome string)
	SaveConflict()
}

type nopRecorder struct{}

func (nopRecorder) CartMutation(string, string) {}
func (nopRecorder) SaveConflict()               {}

type options struct {
	maxSaveRetries      int
	validateConcurrency int
	recorder            Recorder
	now                 func() time.Time
}

// Option 服务构造选项
type Option func(*options)

// WithMaxSaveRetries 版本冲突时的最大重试次数
func WithMaxSaveRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxSaveRetries = n
		}
	}
}

// WithValidateConcurrency 库存复核的并发度
func WithValidateConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.validateConcurrency = n
		}
	}
}

// WithRecorder 注入指标记录器
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock 注入时钟，用于行的 AddedAt 和事件时间
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		maxSaveRetries:      3,
		validateConcurrency: 8,
		recorder:            nopRecorder{},
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) newCart() *domain.Cart {
	return domain.NewCart(domain.WithClock(o.now))
}
