package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func TestInit_SQLite(t *testing.T) {
	d, err := Init(Config{Driver: "sqlite", DSN: "file:dbtest?mode=memory&cache=shared", MaxOpenConns: 1, LogEnabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.AutoMigrate(&counter{}))
	require.NoError(t, d.Create(&counter{ID: 1, Value: 1}).Error)

	ctx := context.Background()
	errBoom := errors.New("boom")
	err = d.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&counter{}).Where("id = ?", 1).Update("value", 99).Error; err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	var c counter
	require.NoError(t, d.First(&c, 1).Error)
	assert.Equal(t, 1, c.Value)

	require.NoError(t, d.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Model(&counter{}).Where("id = ?", 1).Update("value", 2).Error
	}))
	require.NoError(t, d.First(&c, 1).Error)
	assert.Equal(t, 2, c.Value)
}

func TestInit_UnsupportedDriver(t *testing.T) {
	_, err := Init(Config{Driver: "oracle"})
	assert.Error(t, err)
}
