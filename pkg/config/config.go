// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 服务配置，对应 configs/cart/config.toml
type Config struct {
	ServiceName string          `mapstructure:"service_name"`
	Version     string          `mapstructure:"version"`
	Environment string          `mapstructure:"environment"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Cart        CartConfig      `mapstructure:"cart"`
	Catalog     CatalogConfig   `mapstructure:"catalog"`
}

// HTTPConfig 超时单位秒
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// GRPCConfig IdleTimeout 单位秒
type GRPCConfig struct {
	Host                 string `mapstructure:"host"`
	Port                 int    `mapstructure:"port"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
	IdleTimeout          int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig Driver 取 mysql 或 sqlite；ConnMaxLifetime 单位秒，SlowQueryThreshold 单位毫秒
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"`
	LogEnabled         bool   `mapstructure:"log_enabled"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"`
}

// RedisConfig 未启用时限流退化为进程内实现，商品缓存关闭
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// KafkaConfig Brokers 为空时事件发布退化为 noop
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	SessionTimeout int      `mapstructure:"session_timeout"`
}

// LoggerConfig 字段含义同 logger.Config
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// TracingConfig CollectorEndpoint 为 OTLP gRPC 地址
type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRate      float64 `mapstructure:"sampling_rate"`
}

// MetricsConfig Prometheus 独立监听端口
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 按客户端限流，Burst 缺省时取 QPS
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	QPS     int  `mapstructure:"qps"`
	Burst   int  `mapstructure:"burst"`
}

// CartConfig Storage 取 memory、redis 或 mysql；TTL 单位秒，0 表示永不过期
type CartConfig struct {
	Storage             string `mapstructure:"storage"`
	KeyPrefix           string `mapstructure:"key_prefix"`
	TTL                 int    `mapstructure:"ttl"`
	MaxSaveRetries      int    `mapstructure:"max_save_retries"`
	ValidateConcurrency int    `mapstructure:"validate_concurrency"`
	TopicPrefix         string `mapstructure:"topic_prefix"`
}

// CatalogConfig CacheTTL 单位秒，0 表示不缓存
type CatalogConfig struct {
	CacheTTL        int    `mapstructure:"cache_ttl"`
	ConsumeEvents   bool   `mapstructure:"consume_events"`
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
}

// defaults 既是缺省值，也让 AutomaticEnv 能覆盖文件中未出现的 key
var defaults = map[string]any{
	"environment": "dev",

	"http.host":          "0.0.0.0",
	"http.port":          8080,
	"http.read_timeout":  30,
	"http.write_timeout": 30,

	"grpc.host":                   "0.0.0.0",
	"grpc.port":                   50051,
	"grpc.max_concurrent_streams": 1000,
	"grpc.idle_timeout":           300,

	"database.driver":               "sqlite",
	"database.dsn":                  "",
	"database.max_open_conns":       25,
	"database.max_idle_conns":       5,
	"database.conn_max_lifetime":    300,
	"database.log_enabled":          false,
	"database.slow_query_threshold": 1000,

	"redis.enabled":       false,
	"redis.host":          "localhost",
	"redis.port":          6379,
	"redis.password":      "",
	"redis.db":            0,
	"redis.max_pool_size": 10,
	"redis.conn_timeout":  5,
	"redis.read_timeout":  3,
	"redis.write_timeout": 3,

	"kafka.brokers":         []string{},
	"kafka.group_id":        "",
	"kafka.session_timeout": 10,

	"logger.level":       "info",
	"logger.format":      "json",
	"logger.output":      "stdout",
	"logger.file_path":   "logs/app.log",
	"logger.max_size":    100,
	"logger.max_backups": 10,
	"logger.max_age":     30,
	"logger.compress":    true,
	"logger.with_caller": true,

	"tracing.enabled":            true,
	"tracing.collector_endpoint": "localhost:4317",
	"tracing.sampling_rate":      1.0,

	"metrics.enabled": true,
	"metrics.port":    9090,
	"metrics.path":    "/metrics",

	"rate_limit.enabled": true,
	"rate_limit.qps":     50,
	"rate_limit.burst":   100,

	"cart.storage":              "memory",
	"cart.key_prefix":           "cart:session:",
	"cart.ttl":                  0,
	"cart.max_save_retries":     3,
	"cart.validate_concurrency": 8,
	"cart.topic_prefix":         "",

	"catalog.cache_ttl":         300,
	"catalog.consume_events":    false,
	"catalog.dead_letter_topic": "catalog.dlq",
}

// Load 读取 TOML 文件，文件缺失视为错误；APP_ 前缀的环境变量优先于文件
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadWithDefaults 同 Load，但文件缺失时退回缺省值与环境变量
func LoadWithDefaults(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, mustExist bool) (*Config, error) {
	v := viper.New()
	v.SetDefault("service_name", "")
	v.SetDefault("version", "")
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil && mustExist {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	// cart.max_save_retries 对应 APP_CART_MAX_SAVE_RETRIES
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

// Validate 校验必填项与取值范围，并补齐 Environment、Cart.Storage 的空值
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if !validPort(c.HTTP.Port) {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if !validPort(c.GRPC.Port) {
		return fmt.Errorf("grpc.port out of range: %d", c.GRPC.Port)
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
	}

	if c.Cart.Storage == "" {
		c.Cart.Storage = "memory"
	}
	switch c.Cart.Storage {
	case "memory", "mysql":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("cart.storage = redis needs redis.enabled")
		}
	default:
		return fmt.Errorf("cart.storage %q is not one of memory, redis, mysql", c.Cart.Storage)
	}
	if c.Cart.MaxSaveRetries < 0 {
		return fmt.Errorf("cart.max_save_retries must be >= 0, got %d", c.Cart.MaxSaveRetries)
	}
	if c.RateLimit.Enabled && c.RateLimit.QPS <= 0 {
		return fmt.Errorf("rate_limit.qps must be positive when enabled, got %d", c.RateLimit.QPS)
	}
	return nil
}

// GetEnv 读取环境变量，空值返回 fallback
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
