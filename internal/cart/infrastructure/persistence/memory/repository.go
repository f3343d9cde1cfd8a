package memory

import (
	"context"
	"sync"

	"github.com/wyfcoding/gouwadan/internal/cart/domain"
)

// Repository 进程内的购物车槽位，适用于开发环境和单实例部署
type Repository struct {
	mu    sync.Mutex
	slots map[string]domain.StoredCart
}

// NewRepository 创建内存仓储
func NewRepository() *Repository {
	return &Repository{slots: make(map[string]domain.StoredCart)}
}

func (r *Repository) Load(_ context.Context, sessionID string) (*domain.StoredCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.slots[sessionID]
	if !ok {
		return &domain.StoredCart{}, nil
	}
	return &domain.StoredCart{Payload: append([]byte(nil), sc.Payload...), Version: sc.Version}, nil
}

func (r *Repository) Save(_ context.Context, sessionID string, payload []byte, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[sessionID].Version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	next := expectedVersion + 1
	r.slots[sessionID] = domain.StoredCart{Payload: append([]byte(nil), payload...), Version: next}
	return next, nil
}

func (r *Repository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, sessionID)
	return nil
}
