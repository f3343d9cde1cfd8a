package domain

import (
	"context"
	"errors"
)

// ErrVersionConflict 保存时版本号已被其他写入者推进
var ErrVersionConflict = errors.New("cart version conflict")

// StoredCart 持久化槽位中的原始内容
type StoredCart struct {
	Payload []byte
	// Version 0 表示槽位不存在
	Version int64
}

// CartRepository 按会话存放整个购物车的持久化槽位。
// Save 整体覆盖写入，expectedVersion 与当前版本不一致时返回 ErrVersionConflict。
type CartRepository interface {
	Load(ctx context.Context, sessionID string) (*StoredCart, error)
	Save(ctx context.Context, sessionID string, payload []byte, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, sessionID string) error
}
