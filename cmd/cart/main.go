// CartService 主程序
// 功能：多店铺购物车服务，包括加购、改数量、移除、清空、汇总与结算前库存复核
// 架构：基于 DDD + Gin + gRPC 健康检查 + Kafka 事件
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	cartapp "github.com/wyfcoding/gouwadan/internal/cart/application"
	cartdomain "github.com/wyfcoding/gouwadan/internal/cart/domain"
	cartcatalog "github.com/wyfcoding/gouwadan/internal/cart/infrastructure/catalog"
	cartmessaging "github.com/wyfcoding/gouwadan/internal/cart/infrastructure/messaging"
	"github.com/wyfcoding/gouwadan/internal/cart/infrastructure/persistence/memory"
	cartmysql "github.com/wyfcoding/gouwadan/internal/cart/infrastructure/persistence/mysql"
	cartredis "github.com/wyfcoding/gouwadan/internal/cart/infrastructure/persistence/redis"
	carthttp "github.com/wyfcoding/gouwadan/internal/cart/interfaces/http"
	catalogapp "github.com/wyfcoding/gouwadan/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/gouwadan/internal/catalog/domain"
	catalogmessaging "github.com/wyfcoding/gouwadan/internal/catalog/infrastructure/messaging"
	catalogmysql "github.com/wyfcoding/gouwadan/internal/catalog/infrastructure/persistence/mysql"
	catalogredis "github.com/wyfcoding/gouwadan/internal/catalog/infrastructure/persistence/redis"
	"github.com/wyfcoding/gouwadan/internal/catalog/interfaces/consumer"
	cataloghttp "github.com/wyfcoding/gouwadan/internal/catalog/interfaces/http"
	"github.com/wyfcoding/gouwadan/pkg/cache"
	"github.com/wyfcoding/gouwadan/pkg/config"
	"github.com/wyfcoding/gouwadan/pkg/db"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"github.com/wyfcoding/gouwadan/pkg/metrics"
	"github.com/wyfcoding/gouwadan/pkg/middleware"
	"github.com/wyfcoding/gouwadan/pkg/mq"
	"github.com/wyfcoding/gouwadan/pkg/ratelimit"
	"github.com/wyfcoding/gouwadan/pkg/trace"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. 加载配置
	configPath := config.GetEnv("APP_CONFIG", "configs/cart/config.toml")
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Service:    cfg.ServiceName,
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting CartService",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"cart_storage", cfg.Cart.Storage,
	)

	// 3. 初始化追踪
	if cfg.Tracing.Enabled {
		shutdown, err := trace.Init(ctx, trace.Config{
			ServiceName:  cfg.ServiceName,
			Version:      cfg.Version,
			Environment:  cfg.Environment,
			Endpoint:     cfg.Tracing.CollectorEndpoint,
			SamplingRate: cfg.Tracing.SamplingRate,
		})
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracer", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()
			logger.Info(ctx, "Tracer initialized", "endpoint", cfg.Tracing.CollectorEndpoint)
		}
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := catalogmysql.AutoMigrate(database.DB); err != nil {
		logger.Fatal(ctx, "Failed to migrate catalog tables", "error", err)
	}
	if cfg.Cart.Storage == "mysql" {
		if err := cartmysql.AutoMigrate(database.DB); err != nil {
			logger.Fatal(ctx, "Failed to migrate cart tables", "error", err)
		}
	}

	// 5. 初始化 Redis
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
		}
		defer redisCache.Close()
	}

	// 6. 初始化限流器
	var rateLimiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	if redisCache != nil {
		rateLimiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient())
	}

	// 7. 初始化 Kafka
	var producer *mq.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			SessionTimeout: cfg.Kafka.SessionTimeout,
			MaxRetries:     3,
			RetryBackoff:   100,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize Kafka producer", "error", err)
		}
		defer producer.Close()
	}

	// 8. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		if err := metricsInstance.Register(nil); err != nil {
			logger.Fatal(ctx, "Failed to register metrics", "error", err)
		}
		metricsServer = metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, nil)
	}

	// 9. 初始化应用服务
	catalogService := newCatalogService(cfg, database, redisCache, producer)
	catalogService.ObserveCache(metricsInstance.CacheResult)

	cartService := cartapp.NewCartApplicationService(
		newCartRepository(cfg, database, redisCache),
		newCartPublisher(cfg, producer),
		cartcatalog.NewSnapshotProvider(catalogService),
		cartapp.WithMaxSaveRetries(cfg.Cart.MaxSaveRetries),
		cartapp.WithValidateConcurrency(cfg.Cart.ValidateConcurrency),
		cartapp.WithRecorder(metricsInstance),
	)

	// 10. 创建服务器
	httpServer := createHTTPServer(cfg, cartService, catalogService, rateLimiter, metricsInstance)
	grpcServer, healthServer := createGRPCServer(cfg, rateLimiter)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		logger.Info(gctx, "Starting gRPC server", "addr", addr)
		return grpcServer.Serve(listener)
	})

	// 11. 库存事件消费者
	if cfg.Catalog.ConsumeEvents && producer != nil {
		kafkaConsumer, err := mq.NewConsumer(mq.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			SessionTimeout: cfg.Kafka.SessionTimeout,
		}, catalogdomain.TopicProductStockChanged)
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize Kafka consumer", "error", err)
		}
		defer kafkaConsumer.Close()

		handler := consumer.NewStockChangedHandler(catalogService, mq.NewDeadLetterQueue(producer, cfg.Catalog.DeadLetterTopic))
		g.Go(func() error { return handler.Run(gctx, kafkaConsumer) })
	}

	// 12. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "Shutting down CartService")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "HTTP server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "Metrics server shutdown error", "error", err)
			}
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "CartService exited with error", "error", err)
	}
	logger.Info(context.Background(), "CartService stopped")
}

// newCatalogService 组装商品目录服务
func newCatalogService(cfg *config.Config, database *db.DB, redisCache *cache.RedisCache, producer *mq.KafkaProducer) *catalogapp.CatalogApplicationService {
	var productCache catalogdomain.ProductCache
	if redisCache != nil && cfg.Catalog.CacheTTL > 0 {
		productCache = catalogredis.NewProductCache(redisCache)
	}

	var publisher catalogdomain.EventPublisher = catalogmessaging.NoopPublisher{}
	if producer != nil {
		publisher = catalogmessaging.NewKafkaPublisher(producer)
	}

	return catalogapp.NewCatalogApplicationService(
		catalogmysql.NewProductRepository(database.DB),
		catalogmysql.NewStoreRepository(database.DB),
		productCache,
		publisher,
		time.Duration(cfg.Catalog.CacheTTL)*time.Second,
	)
}

// newCartRepository 按配置选择购物车存储槽位
func newCartRepository(cfg *config.Config, database *db.DB, redisCache *cache.RedisCache) cartdomain.CartRepository {
	switch cfg.Cart.Storage {
	case "redis":
		return cartredis.NewRepository(redisCache.GetClient(), cfg.Cart.KeyPrefix, time.Duration(cfg.Cart.TTL)*time.Second)
	case "mysql":
		return cartmysql.NewCartRepository(database.DB)
	default:
		return memory.NewRepository()
	}
}

func newCartPublisher(cfg *config.Config, producer *mq.KafkaProducer) cartdomain.EventPublisher {
	if producer == nil {
		return cartmessaging.NoopPublisher{}
	}
	return cartmessaging.NewKafkaPublisher(producer, cfg.Cart.TopicPrefix)
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	cartService *cartapp.CartApplicationService,
	catalogService *catalogapp.CatalogApplicationService,
	rateLimiter ratelimit.RateLimiter,
	m *metrics.Metrics,
) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 添加中间件
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(m.GinMiddleware())
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))

	// 注册路由
	carthttp.NewCartHandler(cartService).RegisterRoutes(router)
	cataloghttp.NewCatalogHandler(catalogService).RegisterRoutes(router)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}

// createGRPCServer 创建 gRPC 服务器，只暴露健康检查与反射
func createGRPCServer(cfg *config.Config, rateLimiter ratelimit.RateLimiter) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(),
			middleware.GRPCRateLimitInterceptor(rateLimiter, cfg.RateLimit),
		),
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
	}

	server := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return server, healthServer
}
