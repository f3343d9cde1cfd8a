package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// CartQueryService 购物车查询服务
type CartQueryService struct {
	repo     domain.CartRepository
	provider SnapshotProvider
	opts     options
}

// NewCartQueryService 创建购物车查询服务实例
func NewCartQueryService(
	repo domain.CartRepository,
	provider SnapshotProvider,
	opts ...Option,
) *CartQueryService {
	return &CartQueryService{
		repo:     repo,
		provider: provider,
		opts:     buildOptions(opts),
	}
}

// GetCart 根据会话获取购物车，不存在时返回空购物车
func (s *CartQueryService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	stored, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	cart := s.opts.newCart()
	if stored != nil {
		cart.Load(stored.Payload)
	}
	return cart, nil
}

// Summary 获取购物车概览
func (s *CartQueryService) Summary(ctx context.Context, sessionID string) (*CartSummary, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newSummary(sessionID, cart), nil
}

// ItemCount 获取购物车商品件数
func (s *CartQueryService) ItemCount(ctx context.Context, sessionID string) (int, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

// Total 获取金额合计，storeID 为空时统计全部店铺
func (s *CartQueryService) Total(ctx context.Context, sessionID, storeID string) (decimal.Decimal, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	if storeID == "" {
		return cart.Total(), nil
	}
	return cart.StoreTotal(storeID), nil
}

// StoreGroups 按店铺分组
func (s *CartQueryService) StoreGroups(ctx context.Context, sessionID string) ([]domain.StoreGroup, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return cart.GroupByStore(), nil
}

// IsInCart 判断商品是否在购物车中
func (s *CartQueryService) IsInCart(ctx context.Context, sessionID, productID, storeID string) (bool, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return cart.IsInCart(productID, storeID), nil
}

// QuantityOf 获取商品在购物车中的数量，不存在时为 0
func (s *CartQueryService) QuantityOf(ctx context.Context, sessionID, productID, storeID string) (int, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return cart.QuantityOf(productID, storeID), nil
}

// LineStatus 查询单行是否在购物车中及其数量
func (s *CartQueryService) LineStatus(ctx context.Context, sessionID, productID, storeID string) (*LineStatus, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &LineStatus{
		ProductID: productID,
		StoreID:   storeID,
		InCart:    cart.IsInCart(productID, storeID),
		Quantity:  cart.QuantityOf(productID, storeID),
	}, nil
}

// ValidateStock 以最新库存复核全部实物行，返回的问题按行顺序排列。
// 行上保存的库存只是加入时的快照，结算前需要调用此方法。
func (s *CartQueryService) ValidateStock(ctx context.Context, sessionID string) ([]StockIssue, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, errors.New("snapshot provider not configured")
	}

	lines := cart.Lines()
	found := make([]*StockIssue, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.validateConcurrency)
	for i, line := range lines {
		if line.IsDigital {
			continue
		}
		g.Go(func() error {
			product, _, err := s.provider.Snapshot(gctx, line.StoreID, line.ProductID)
			switch {
			case errors.Is(err, ErrProductNotFound):
				found[i] = &StockIssue{
					ProductID: line.ProductID,
					StoreID:   line.StoreID,
					Reason:    IssueUnavailable,
					Quantity:  line.Quantity,
				}
				return nil
			case err != nil:
				return fmt.Errorf("snapshot %s/%s: %w", line.StoreID, line.ProductID, err)
			}
			if product.IsDigital || line.Quantity <= product.Stock {
				return nil
			}
			found[i] = &StockIssue{
				ProductID: line.ProductID,
				StoreID:   line.StoreID,
				Reason:    IssueInsufficientStock,
				Quantity:  line.Quantity,
				Available: product.Stock,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error(ctx, "stock validation failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	issues := make([]StockIssue, 0)
	for _, is := range found {
		if is != nil {
			issues = append(issues, *is)
		}
	}
	return issues, nil
}
