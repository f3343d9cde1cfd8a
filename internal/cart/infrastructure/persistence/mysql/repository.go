package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/gouwadan/internal/cart/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartSlot 每个会话一行，payload 为整车 JSON
type CartSlot struct {
	SessionID string    `gorm:"column:session_id;primaryKey;size:128"`
	Payload   string    `gorm:"column:payload;type:mediumtext"`
	Version   int64     `gorm:"column:version;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (CartSlot) TableName() string {
	return "cart_slots"
}

type cartRepository struct{ db *gorm.DB }

// NewCartRepository 创建基于 MySQL 的购物车仓储
func NewCartRepository(db *gorm.DB) domain.CartRepository {
	return &cartRepository{db: db}
}

// AutoMigrate 创建或更新 cart_slots 表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CartSlot{})
}

func (r *cartRepository) Load(ctx context.Context, sessionID string) (*domain.StoredCart, error) {
	var slot CartSlot
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.StoredCart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart slot: %w", err)
	}
	return &domain.StoredCart{Payload: []byte(slot.Payload), Version: slot.Version}, nil
}

func (r *cartRepository) Save(ctx context.Context, sessionID string, payload []byte, expectedVersion int64) (int64, error) {
	next := expectedVersion + 1
	db := r.db.WithContext(ctx)

	var res *gorm.DB
	if expectedVersion == 0 {
		res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&CartSlot{
			SessionID: sessionID,
			Payload:   string(payload),
			Version:   next,
			UpdatedAt: time.Now(),
		})
	} else {
		res = db.Model(&CartSlot{}).
			Where("session_id = ? AND version = ?", sessionID, expectedVersion).
			Updates(map[string]any{
				"payload":    string(payload),
				"version":    next,
				"updated_at": time.Now(),
			})
	}

	if res.Error != nil {
		return 0, fmt.Errorf("failed to save cart slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrVersionConflict
	}
	return next, nil
}

func (r *cartRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&CartSlot{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart slot: %w", err)
	}
	return nil
}
