// Package cache 封装 go-redis 客户端，负责建连探活与 JSON 值存取
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/gouwadan/pkg/logger"
)

const (
	dialProbeTimeout = 5 * time.Second
	idleConnTTL      = 5 * time.Minute
)

// Config 连接参数，超时字段单位为秒
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	MaxPoolSize  int
	ConnTimeout  int
	ReadTimeout  int
	WriteTimeout int
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// options 转换为 go-redis 选项
func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:            net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password:        c.Password,
		DB:              c.DB,
		PoolSize:        c.MaxPoolSize,
		DialTimeout:     seconds(c.ConnTimeout),
		ReadTimeout:     seconds(c.ReadTimeout),
		WriteTimeout:    seconds(c.WriteTimeout),
		ConnMaxIdleTime: idleConnTTL,
	}
}

// RedisCache 持有一个共享连接池，购物车仓储、商品缓存与分布式限流共用
type RedisCache struct {
	rdb *redis.Client
}

// New 按配置建连，探活失败时释放连接池并返回错误
func New(cfg Config) (*RedisCache, error) {
	opts := cfg.options()
	rdb := redis.NewClient(opts)

	probeCtx, cancel := context.WithTimeout(context.Background(), dialProbeTimeout)
	defer cancel()
	if err := rdb.Ping(probeCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}

	logger.Info(context.Background(), "redis pool ready", "addr", opts.Addr, "db", cfg.DB)
	return NewFromClient(rdb), nil
}

// NewFromClient 复用调用方创建的客户端，测试中配合 miniredis 使用
func NewFromClient(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get 读字符串值，键不存在返回 ""
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		logger.Error(ctx, "redis GET error", "key", key, "error", err)
		return "", err
	}
	return raw, nil
}

// GetJSON 读取并解码到 dest，第一个返回值表示是否命中
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.Get(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Set 写入值，ttl 为 0 表示不过期
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		logger.Error(ctx, "redis SET error", "key", key, "error", err)
	}
	return err
}

// SetJSON 编码后写入
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, encoded, ttl)
}

// Delete 批量删除，空参数直接返回
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := c.rdb.Del(ctx, keys...).Err()
	if err != nil {
		logger.Error(ctx, "redis DEL error", "keys", keys, "error", err)
	}
	return err
}

// Ping 健康检查
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 释放连接池
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// GetClient 暴露底层客户端，供 WATCH 事务和 redis_rate 使用
func (c *RedisCache) GetClient() *redis.Client {
	return c.rdb
}
