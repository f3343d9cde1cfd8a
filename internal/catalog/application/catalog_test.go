package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
)

type memStores struct {
	mu     sync.Mutex
	stores map[string]domain.Store
}

func (r *memStores) Save(_ context.Context, s *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.ID] = *s
	return nil
}

func (r *memStores) GetByID(_ context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

type memProducts struct {
	mu       sync.Mutex
	products map[string]domain.Product
	reads    int
}

func (r *memProducts) Save(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = *p
	return nil
}

func (r *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memProducts) List(_ context.Context, f domain.ProductFilter) ([]*domain.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Product
	for _, p := range r.products {
		if f.StoreID != "" && p.StoreID != f.StoreID {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, len(out), nil
}

func (r *memProducts) UpdateStock(_ context.Context, id string, stock int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	old := p.Stock
	p.Stock = stock
	r.products[id] = p
	return old, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.Product
}

func (c *memCache) Get(_ context.Context, id string) (*domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *memCache) Set(_ context.Context, p *domain.Product, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.ID] = *p
	return nil
}

func (c *memCache) Invalidate(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

type topicRecorder struct {
	mu     sync.Mutex
	topics []string
}

func (p *topicRecorder) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

type catalogFixture struct {
	products *memProducts
	cache    *memCache
	pub      *topicRecorder
	svc      *CatalogApplicationService
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		products: &memProducts{products: map[string]domain.Product{}},
		cache:    &memCache{entries: map[string]domain.Product{}},
		pub:      &topicRecorder{},
	}
	stores := &memStores{stores: map[string]domain.Store{}}
	f.svc = NewCatalogApplicationService(f.products, stores, f.cache, f.pub, time.Minute)
	return f
}

func TestCreateStoreAndProduct(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture()

	store, err := f.svc.CreateStore(ctx, CreateStoreCommand{Name: "Toko A", Slug: "toko-a"})
	require.NoError(t, err)
	assert.NotEmpty(t, store.ID)

	p, err := f.svc.CreateProduct(ctx, CreateProductCommand{
		StoreID: store.ID,
		Name:    "Kopi",
		Price:   decimal.NewFromInt(15000),
		Stock:   15,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, []string{domain.TopicStoreCreated, domain.TopicProductCreated}, f.pub.topics)

	_, err = f.svc.CreateProduct(ctx, CreateProductCommand{StoreID: "ghost", Name: "X", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateProduct(ctx, CreateProductCommand{StoreID: store.ID, Name: "X", Price: decimal.NewFromInt(1), Stock: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	_, err = f.svc.CreateStore(ctx, CreateStoreCommand{Name: "No slug"})
	assert.ErrorIs(t, err, domain.ErrInvalidStore)
}

func TestGetProduct_CacheAside(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture()
	f.products.products["p1"] = domain.Product{ID: "p1", StoreID: "s1", Name: "Kopi", Stock: 3}

	var hits, misses int
	f.svc.ObserveCache(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	p, err := f.svc.GetProduct(ctx, "s1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, 1, f.products.reads)

	_, err = f.svc.GetProduct(ctx, "s1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.products.reads)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	_, err = f.svc.GetProduct(ctx, "s2", "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStock_InvalidatesAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture()
	f.products.products["p1"] = domain.Product{ID: "p1", StoreID: "s1", Name: "Kopi", Stock: 3}

	_, err := f.svc.GetProduct(ctx, "s1", "p1")
	require.NoError(t, err)

	p, err := f.svc.UpdateStock(ctx, UpdateStockCommand{ProductID: "p1", Stock: 9})
	require.NoError(t, err)
	assert.Equal(t, 9, p.Stock)
	assert.Equal(t, []string{domain.TopicProductStockChanged}, f.pub.topics)

	p, err = f.svc.GetProduct(ctx, "s1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 9, p.Stock)

	// 库存不变不发布事件
	_, err = f.svc.UpdateStock(ctx, UpdateStockCommand{ProductID: "p1", Stock: 9})
	require.NoError(t, err)
	assert.Len(t, f.pub.topics, 1)

	_, err = f.svc.UpdateStock(ctx, UpdateStockCommand{ProductID: "p1", Stock: -2})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	_, err = f.svc.UpdateStock(ctx, UpdateStockCommand{ProductID: "nope", Stock: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListProducts(t *testing.T) {
	f := newCatalogFixture()
	f.products.products["p1"] = domain.Product{ID: "p1", StoreID: "s1"}
	f.products.products["p2"] = domain.Product{ID: "p2", StoreID: "s2"}

	list, total, err := f.svc.ListProducts(context.Background(), "s1", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "p1", list[0].ID)
}
