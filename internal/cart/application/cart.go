package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
)

// CartApplicationService 购物车服务门面，整合命令服务和查询服务
type CartApplicationService struct {
	commandService *CartCommandService
	queryService   *CartQueryService
	provider       SnapshotProvider
}

// NewCartApplicationService 创建购物车服务门面实例
func NewCartApplicationService(
	repo domain.CartRepository,
	publisher domain.EventPublisher,
	provider SnapshotProvider,
	opts ...Option,
) *CartApplicationService {
	return &CartApplicationService{
		commandService: NewCartCommandService(repo, publisher, opts...),
		queryService:   NewCartQueryService(repo, provider, opts...),
		provider:       provider,
	}
}

// AddProduct 按标识解析最新快照后加入购物车
func (s *CartApplicationService) AddProduct(ctx context.Context, sessionID, storeID, productID string, qty int) (*CartSummary, error) {
	if sessionID == "" || storeID == "" || productID == "" {
		return nil, ErrInvalidInput
	}
	if s.provider == nil {
		return nil, fmt.Errorf("snapshot provider not configured")
	}
	product, store, err := s.provider.Snapshot(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	return s.AddItem(ctx, AddItemCommand{
		SessionID: sessionID,
		Product:   product,
		Store:     store,
		Quantity:  qty,
	})
}

// AddItem 处理添加商品到购物车。库存不足时同时返回当前概览和 *domain.StockError。
func (s *CartApplicationService) AddItem(ctx context.Context, cmd AddItemCommand) (*CartSummary, error) {
	cart, err := s.commandService.AddItem(ctx, cmd)
	return summarize(cmd.SessionID, cart, err)
}

// RemoveItem 处理从购物车移除商品
func (s *CartApplicationService) RemoveItem(ctx context.Context, sessionID, storeID, productID string) (*CartSummary, error) {
	cart, err := s.commandService.RemoveItem(ctx, RemoveItemCommand{
		SessionID: sessionID,
		ProductID: productID,
		StoreID:   storeID,
	})
	return summarize(sessionID, cart, err)
}

// UpdateQuantity 处理修改数量
func (s *CartApplicationService) UpdateQuantity(ctx context.Context, sessionID, storeID, productID string, qty int) (*CartSummary, error) {
	cart, err := s.commandService.UpdateQuantity(ctx, UpdateQuantityCommand{
		SessionID: sessionID,
		ProductID: productID,
		StoreID:   storeID,
		Quantity:  qty,
	})
	return summarize(sessionID, cart, err)
}

// ClearCart 处理清空购物车
func (s *CartApplicationService) ClearCart(ctx context.Context, sessionID string) (*CartSummary, error) {
	cart, err := s.commandService.ClearCart(ctx, ClearCartCommand{SessionID: sessionID})
	return summarize(sessionID, cart, err)
}

// DiscardCart 删除会话的购物车槽位
func (s *CartApplicationService) DiscardCart(ctx context.Context, sessionID string) error {
	return s.commandService.DiscardCart(ctx, ClearCartCommand{SessionID: sessionID})
}

// GetCart 根据会话获取购物车
func (s *CartApplicationService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.queryService.GetCart(ctx, sessionID)
}

// Summary 获取购物车概览
func (s *CartApplicationService) Summary(ctx context.Context, sessionID string) (*CartSummary, error) {
	return s.queryService.Summary(ctx, sessionID)
}

// ItemCount 获取购物车商品件数
func (s *CartApplicationService) ItemCount(ctx context.Context, sessionID string) (int, error) {
	return s.queryService.ItemCount(ctx, sessionID)
}

// Total 获取购物车总金额
func (s *CartApplicationService) Total(ctx context.Context, sessionID, storeID string) (decimal.Decimal, error) {
	return s.queryService.Total(ctx, sessionID, storeID)
}

// StoreGroups 按店铺分组
func (s *CartApplicationService) StoreGroups(ctx context.Context, sessionID string) ([]domain.StoreGroup, error) {
	return s.queryService.StoreGroups(ctx, sessionID)
}

// IsInCart 判断商品是否在购物车中
func (s *CartApplicationService) IsInCart(ctx context.Context, sessionID, storeID, productID string) (bool, error) {
	return s.queryService.IsInCart(ctx, sessionID, productID, storeID)
}

// QuantityOf 获取商品数量
func (s *CartApplicationService) QuantityOf(ctx context.Context, sessionID, storeID, productID string) (int, error) {
	return s.queryService.QuantityOf(ctx, sessionID, productID, storeID)
}

// LineStatus 查询单行状态
func (s *CartApplicationService) LineStatus(ctx context.Context, sessionID, storeID, productID string) (*LineStatus, error) {
	return s.queryService.LineStatus(ctx, sessionID, productID, storeID)
}

// ValidateStock 结算前复核库存
func (s *CartApplicationService) ValidateStock(ctx context.Context, sessionID string) ([]StockIssue, error) {
	return s.queryService.ValidateStock(ctx, sessionID)
}

func summarize(sessionID string, cart *domain.Cart, err error) (*CartSummary, error) {
	if cart == nil {
		return nil, err
	}
	return newSummary(sessionID, cart), err
}
