package catalog

import (
	"context"
	"errors"

	"github.com/wyfcoding/gouwadan/internal/cart/application"
	"github.com/wyfcoding/gouwadan/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/gouwadan/internal/catalog/domain"
)

// Reader 购物车需要的商品目录读能力
type Reader interface {
	GetStore(ctx context.Context, id string) (*catalogdomain.Store, error)
	GetProduct(ctx context.Context, storeID, productID string) (*catalogdomain.Product, error)
}

// SnapshotProvider 把商品目录实体转换为购物车快照
type SnapshotProvider struct {
	reader Reader
}

// NewSnapshotProvider 创建快照适配器
func NewSnapshotProvider(reader Reader) *SnapshotProvider {
	return &SnapshotProvider{reader: reader}
}

// Snapshot 返回商品与店铺快照，任一不存在时返回 application.ErrProductNotFound
func (p *SnapshotProvider) Snapshot(ctx context.Context, storeID, productID string) (domain.ProductSnapshot, domain.StoreSnapshot, error) {
	product, err := p.reader.GetProduct(ctx, storeID, productID)
	if err != nil {
		return domain.ProductSnapshot{}, domain.StoreSnapshot{}, mapErr(err)
	}
	store, err := p.reader.GetStore(ctx, storeID)
	if err != nil {
		return domain.ProductSnapshot{}, domain.StoreSnapshot{}, mapErr(err)
	}

	ps := domain.ProductSnapshot{
		ID:        product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		IsDigital: product.IsDigital,
		Image:     product.ImageURL,
		Category:  product.Category,
	}
	ss := domain.StoreSnapshot{
		ID:          store.ID,
		Name:        store.Name,
		Slug:        store.Slug,
		AccentColor: store.AccentColor,
	}
	return ps, ss, nil
}

func mapErr(err error) error {
	if errors.Is(err, catalogdomain.ErrNotFound) {
		return application.ErrProductNotFound
	}
	return err
}
