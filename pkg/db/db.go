// Package db 负责打开 GORM 连接（mysql 或 sqlite）、设置连接池，并提供事务助手与 slog 日志适配
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const memorySQLite = "file::memory:?cache=shared"

// Config 连接参数，ConnMaxLifetime 单位秒，SlowQueryThreshold 单位毫秒
type Config struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int
	LogEnabled         bool
	SlowQueryThreshold int
}

func (c Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "mysql":
		return mysql.Open(c.DSN), nil
	case "sqlite":
		if c.DSN == "" {
			return sqlite.Open(memorySQLite), nil
		}
		return sqlite.Open(c.DSN), nil
	}
	return nil, fmt.Errorf("db: driver %q not supported", c.Driver)
}

// DB 内嵌 *gorm.DB，仓储直接使用 DB 字段
type DB struct {
	*gorm.DB
	cfg Config
}

// Init 打开连接、应用连接池参数并探活
func Init(cfg Config) (*DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	slow := time.Duration(cfg.SlowQueryThreshold) * time.Millisecond
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(cfg.LogEnabled, slow)})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Driver, err)
	}

	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db: underlying pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx := context.Background()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("db: ping %s: %w", cfg.Driver, err)
	}

	logger.Info(ctx, "database ready", "driver", cfg.Driver, "max_open", cfg.MaxOpenConns)
	return &DB{DB: gdb, cfg: cfg}, nil
}

// Close 关闭底层连接池
func (d *DB) Close() error {
	pool, err := d.DB.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx 在 gdb 上开启事务执行 fn，fn 出错或 panic 时回滚
func WithTx(ctx context.Context, gdb *gorm.DB, fn func(*gorm.DB) error) error {
	return gdb.WithContext(ctx).Transaction(fn)
}

// WithTx 同包级 WithTx
func (d *DB) WithTx(ctx context.Context, fn func(*gorm.DB) error) error {
	return WithTx(ctx, d.DB, fn)
}

// GormLogger 把 GORM 日志转发到 pkg/logger
type GormLogger struct {
	enabled bool
	slow    time.Duration
}

// NewGormLogger slow 为 0 时不做慢查询告警
func NewGormLogger(enabled bool, slow time.Duration) *GormLogger {
	return &GormLogger{enabled: enabled, slow: slow}
}

// LogMode 级别由 pkg/logger 控制，这里忽略
func (l *GormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.enabled {
		logger.Info(ctx, "gorm: "+msg, "args", args)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	logger.Warn(ctx, "gorm: "+msg, "args", args)
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	logger.Error(ctx, "gorm: "+msg, "args", args)
}

// Trace 每条 SQL 调用一次；ErrRecordNotFound 属于正常分支，不记为错误
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if !l.enabled {
		return
	}

	took := time.Since(begin)
	query, affected := fc()
	fields := []any{"sql", query, "rows", affected, "took", took}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error(ctx, "sql failed", append(fields, "error", err)...)
		return
	}
	if l.slow > 0 && took > l.slow {
		logger.Warn(ctx, "sql slow", append(fields, "threshold", l.slow)...)
		return
	}
	logger.Debug(ctx, "sql", fields...)
}
