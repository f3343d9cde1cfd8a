// Package metrics 提供 Prometheus 指标集合、Gin 中间件与指标 HTTP 服务
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/gouwadan/pkg/logger"
)

const namespace = "gouwadan"

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// gRPC 请求计数
	GRPCRequestsTotal *prometheus.CounterVec

	// 购物车命令结果
	CartMutationsTotal *prometheus.CounterVec
	// 库存不足拒绝次数
	StockRejectionsTotal prometheus.Counter
	// 保存版本冲突次数
	SaveConflictsTotal prometheus.Counter

	// 商品缓存命中情况
	CatalogCacheTotal *prometheus.CounterVec
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),

		CartMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cart_mutations_total",
			Help:      "Cart commands by operation and outcome",
		}, []string{"op", "outcome"}),
		StockRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cart_stock_rejections_total",
			Help:      "Cart commands rejected for insufficient stock",
		}),
		SaveConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cart_save_conflicts_total",
			Help:      "Cart saves retried after a version conflict",
		}),

		CatalogCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "catalog_cache_requests_total",
			Help:      "Product cache lookups by result",
		}, []string{"result"}),
	}
}

// Register 注册所有指标，reg 为 nil 时使用默认注册表
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.CartMutationsTotal,
		m.StockRejectionsTotal,
		m.SaveConflictsTotal,
		m.CatalogCacheTotal,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// CartMutation 记录购物车命令结果
func (m *Metrics) CartMutation(op, outcome string) {
	m.CartMutationsTotal.WithLabelValues(op, outcome).Inc()
	if outcome == "insufficient_stock" {
		m.StockRejectionsTotal.Inc()
	}
}

// SaveConflict 记录一次版本冲突
func (m *Metrics) SaveConflict() {
	m.SaveConflictsTotal.Inc()
}

// CacheResult 记录商品缓存命中或未命中
func (m *Metrics) CacheResult(hit bool) {
	if hit {
		m.CatalogCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CatalogCacheTotal.WithLabelValues("miss").Inc()
}

// GinMiddleware 记录 HTTP 请求数与耗时，route 使用路由模板避免高基数
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// StartHTTPServer 在独立端口启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string, gatherer prometheus.Gatherer) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", srv.Addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "Prometheus HTTP server failed", "error", err)
		}
	}()
	return srv
}
