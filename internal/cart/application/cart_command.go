package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/gouwadan/internal/cart/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
)

// AddItemCommand 添加商品到购物车命令
type AddItemCommand struct {
	SessionID string
	Product   domain.ProductSnapshot
	Store     domain.StoreSnapshot
	Quantity  int
}

// RemoveItemCommand 从购物车移除商品命令
type RemoveItemCommand struct {
	SessionID string
	ProductID string
	StoreID   string
}

// UpdateQuantityCommand 修改购物车行数量命令
type UpdateQuantityCommand struct {
	SessionID string
	ProductID string
	StoreID   string
	Quantity  int
}

// ClearCartCommand 清空购物车命令
type ClearCartCommand struct {
	SessionID string
}

// CartCommandService 购物车命令服务。
// 每个命令在会话锁内完成 读取、执行、按版本保存，版本冲突时重新读取再执行。
type CartCommandService struct {
	repo      domain.CartRepository
	publisher domain.EventPublisher
	locks     *sessionLocks
	opts      options
}

// NewCartCommandService 创建购物车命令服务实例
func NewCartCommandService(
	repo domain.CartRepository,
	publisher domain.EventPublisher,
	opts ...Option,
) *CartCommandService {
	return &CartCommandService{
		repo:      repo,
		publisher: publisher,
		locks:     newSessionLocks(),
		opts:      buildOptions(opts),
	}
}

// AddItem 处理添加商品到购物车
func (s *CartCommandService) AddItem(ctx context.Context, cmd AddItemCommand) (*domain.Cart, error) {
	if cmd.SessionID == "" || cmd.Product.ID == "" || cmd.Store.ID == "" {
		return nil, ErrInvalidInput
	}

	key := domain.LineKey{ProductID: cmd.Product.ID, StoreID: cmd.Store.ID}
	cart, res, err := s.mutate(ctx, cmd.SessionID, "add_item", func(c *domain.Cart) domain.Result {
		return c.AddItem(cmd.Product, cmd.Quantity, cmd.Store)
	})
	if err != nil {
		return nil, err
	}
	if res.Rejected() {
		return cart, s.rejected(ctx, cmd.SessionID, key, res)
	}

	s.publish(ctx, domain.TopicItemAdded, cmd.SessionID, domain.CartItemAddedEvent{
		SessionID:   cmd.SessionID,
		ProductID:   cmd.Product.ID,
		StoreID:     cmd.Store.ID,
		Quantity:    max(cmd.Quantity, 1),
		NewQuantity: res.Quantity,
		UnitPrice:   cmd.Product.Price,
		Timestamp:   s.opts.now(),
	})
	return cart, nil
}

// RemoveItem 处理从购物车移除商品，行不存在时直接返回当前购物车
func (s *CartCommandService) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (*domain.Cart, error) {
	if cmd.SessionID == "" || cmd.ProductID == "" || cmd.StoreID == "" {
		return nil, ErrInvalidInput
	}

	cart, res, err := s.mutate(ctx, cmd.SessionID, "remove_item", func(c *domain.Cart) domain.Result {
		return c.RemoveItem(cmd.ProductID, cmd.StoreID)
	})
	if err != nil {
		return nil, err
	}

	if res.Changed() {
		s.publish(ctx, domain.TopicItemRemoved, cmd.SessionID, domain.CartItemRemovedEvent{
			SessionID: cmd.SessionID,
			ProductID: cmd.ProductID,
			StoreID:   cmd.StoreID,
			Timestamp: s.opts.now(),
		})
	}
	return cart, nil
}

// UpdateQuantity 处理修改数量，数量小于等于 0 时移除该行
func (s *CartCommandService) UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (*domain.Cart, error) {
	if cmd.SessionID == "" || cmd.ProductID == "" || cmd.StoreID == "" {
		return nil, ErrInvalidInput
	}

	key := domain.LineKey{ProductID: cmd.ProductID, StoreID: cmd.StoreID}
	cart, res, err := s.mutate(ctx, cmd.SessionID, "update_quantity", func(c *domain.Cart) domain.Result {
		return c.UpdateQuantity(cmd.ProductID, cmd.StoreID, cmd.Quantity)
	})
	if err != nil {
		return nil, err
	}
	if res.Rejected() {
		return cart, s.rejected(ctx, cmd.SessionID, key, res)
	}
	if !res.Changed() {
		return cart, nil
	}

	if cmd.Quantity <= 0 {
		s.publish(ctx, domain.TopicItemRemoved, cmd.SessionID, domain.CartItemRemovedEvent{
			SessionID: cmd.SessionID,
			ProductID: cmd.ProductID,
			StoreID:   cmd.StoreID,
			Timestamp: s.opts.now(),
		})
		return cart, nil
	}

	s.publish(ctx, domain.TopicQuantityUpdated, cmd.SessionID, domain.CartQuantityUpdatedEvent{
		SessionID:   cmd.SessionID,
		ProductID:   cmd.ProductID,
		StoreID:     cmd.StoreID,
		NewQuantity: res.Quantity,
		Timestamp:   s.opts.now(),
	})
	return cart, nil
}

// ClearCart 处理清空购物车，空购物车也会写入一次
func (s *CartCommandService) ClearCart(ctx context.Context, cmd ClearCartCommand) (*domain.Cart, error) {
	if cmd.SessionID == "" {
		return nil, ErrInvalidInput
	}

	cart, _, err := s.mutate(ctx, cmd.SessionID, "clear", func(c *domain.Cart) domain.Result {
		return c.Clear()
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicCartCleared, cmd.SessionID, domain.CartClearedEvent{
		SessionID: cmd.SessionID,
		Timestamp: s.opts.now(),
	})
	return cart, nil
}

// DiscardCart 会话结束时删除整个持久化槽位，槽位不存在也视为成功。
// 与 ClearCart 不同，之后的第一次写入从版本 0 重新开始。
func (s *CartCommandService) DiscardCart(ctx context.Context, cmd ClearCartCommand) error {
	if cmd.SessionID == "" {
		return ErrInvalidInput
	}

	unlock := s.locks.lock(cmd.SessionID)
	defer unlock()

	if err := s.repo.Delete(ctx, cmd.SessionID); err != nil {
		s.opts.recorder.CartMutation("discard", "save_failed")
		logger.Error(ctx, "failed to discard cart", "session_id", cmd.SessionID, "error", err)
		return fmt.Errorf("discard cart: %w", err)
	}
	s.opts.recorder.CartMutation("discard", string(domain.OutcomeApplied))

	s.publish(ctx, domain.TopicCartCleared, cmd.SessionID, domain.CartClearedEvent{
		SessionID: cmd.SessionID,
		Timestamp: s.opts.now(),
	})
	return nil
}

// mutate 在会话锁内执行读改写。保存失败时返回错误，调用方不得认为变更已生效。
func (s *CartCommandService) mutate(
	ctx context.Context,
	sessionID, op string,
	apply func(*domain.Cart) domain.Result,
) (*domain.Cart, domain.Result, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		stored, err := s.repo.Load(ctx, sessionID)
		if err != nil {
			logger.Error(ctx, "failed to load cart", "session_id", sessionID, "error", err)
			return nil, domain.Result{}, fmt.Errorf("load cart: %w", err)
		}

		cart := s.opts.newCart()
		var version int64
		if stored != nil {
			cart.Load(stored.Payload)
			version = stored.Version
		}

		res := apply(cart)
		if !res.Changed() {
			s.opts.recorder.CartMutation(op, string(res.Outcome))
			return cart, res, nil
		}

		payload, err := cart.Encode()
		if err != nil {
			return nil, res, fmt.Errorf("encode cart: %w", err)
		}

		_, err = s.repo.Save(ctx, sessionID, payload, version)
		if err == nil {
			s.opts.recorder.CartMutation(op, string(res.Outcome))
			logger.Debug(ctx, "cart saved", "session_id", sessionID, "op", op, "lines", cart.Len())
			return cart, res, nil
		}

		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= s.opts.maxSaveRetries {
			s.opts.recorder.CartMutation(op, "save_failed")
			logger.Error(ctx, "failed to save cart", "session_id", sessionID, "op", op, "attempt", attempt, "error", err)
			return nil, res, fmt.Errorf("save cart: %w", err)
		}

		s.opts.recorder.SaveConflict()
		logger.Warn(ctx, "cart version conflict, retrying", "session_id", sessionID, "op", op, "attempt", attempt)
		if ctx.Err() != nil {
			return nil, res, fmt.Errorf("save cart: %w", ctx.Err())
		}
	}
}

func (s *CartCommandService) rejected(ctx context.Context, sessionID string, key domain.LineKey, res domain.Result) error {
	logger.Info(ctx, "cart mutation rejected by stock",
		"session_id", sessionID,
		"product_id", key.ProductID,
		"store_id", key.StoreID,
		"requested", res.Requested,
		"available", res.Available,
	)
	s.publish(ctx, domain.TopicStockRejected, sessionID, domain.CartStockRejectedEvent{
		SessionID: sessionID,
		ProductID: key.ProductID,
		StoreID:   key.StoreID,
		Requested: res.Requested,
		Available: res.Available,
		Timestamp: s.opts.now(),
	})
	return domain.NewStockError(key, res)
}

// publish 事件投递失败只记录日志，不影响已保存的购物车
func (s *CartCommandService) publish(ctx context.Context, topic, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		logger.Warn(ctx, "failed to publish cart event", "topic", topic, "session_id", key, "error", err)
	}
}
