// Package logger 全局 slog 日志，自动附带 trace/span/request id，文件输出经 lumberjack 滚动
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

// 未启用 otel 时，中间件用这些键在 ctx 中传递标识
const (
	TraceIDKey   ctxKey = "trace_id"
	SpanIDKey    ctxKey = "span_id"
	RequestIDKey ctxKey = "request_id"
)

var (
	base   = slog.Default()
	levels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// Config 对应配置文件的 [logger] 段；Output 取 stdout、file 或 both
type Config struct {
	Service    string `mapstructure:"service"`
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // 天
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

func (c Config) writer() (io.Writer, error) {
	if c.Output != "file" && c.Output != "both" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("logger: prepare log dir: %w", err)
	}
	rolling := &lumberjack.Logger{
		Filename:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
	if c.Output == "both" {
		return io.MultiWriter(os.Stdout, rolling), nil
	}
	return rolling, nil
}

// Init 按配置选择输出目标并替换全局 logger
func Init(cfg Config) error {
	w, err := cfg.writer()
	if err != nil {
		return err
	}
	SetOutput(w, cfg)
	return nil
}

// SetOutput 直接指定 writer，测试用它捕获输出
func SetOutput(w io.Writer, cfg Config) {
	level, ok := levels[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(a.Key, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	}

	l := slog.New(h)
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	base = l
	slog.SetDefault(l)
}

// From 返回带上 ctx 中标识字段的 logger；otel span 优先于 ctx 里的字符串值
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return base
	}

	var fields []any
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	} else {
		fields = appendString(ctx, fields, TraceIDKey)
		fields = appendString(ctx, fields, SpanIDKey)
	}
	fields = appendString(ctx, fields, RequestIDKey)

	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func appendString(ctx context.Context, fields []any, key ctxKey) []any {
	if v, _ := ctx.Value(key).(string); v != "" {
		return append(fields, string(key), v)
	}
	return fields
}

func Debug(ctx context.Context, msg string, args ...any) { From(ctx).Debug(msg, args...) }

func Info(ctx context.Context, msg string, args ...any) { From(ctx).Info(msg, args...) }

func Warn(ctx context.Context, msg string, args ...any) { From(ctx).Warn(msg, args...) }

func Error(ctx context.Context, msg string, args ...any) { From(ctx).Error(msg, args...) }

// Fatal 记录 error 级别日志后以状态码 1 退出
func Fatal(ctx context.Context, msg string, args ...any) {
	From(ctx).Error(msg, args...)
	os.Exit(1)
}
