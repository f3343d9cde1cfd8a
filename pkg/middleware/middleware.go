// Package middleware 提供 Gin 与 gRPC 的通用中间件（日志、request id、panic recover、CORS、限流）
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"github.com/wyfcoding/gouwadan/pkg/response"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader 请求 id 头
const RequestIDHeader = "X-Request-ID"

// RequestIDKey gin.Context 中保存 request id 的键
const RequestIDKey = "request_id"

// withIDs 将 request id 写入 ctx，未启用 otel 链路时补充 trace id
func withIDs(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, logger.RequestIDKey, requestID)
	if !trace.SpanContextFromContext(ctx).IsValid() {
		ctx = context.WithValue(ctx, logger.TraceIDKey, requestID)
	}
	return ctx
}

// GinLoggingMiddleware 生成或透传 request id，请求结束后按状态码分级记录访问日志
func GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(withIDs(c.Request.Context(), rid))

		c.Next()

		code := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", code,
			"client_ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
			"latency", time.Since(began),
		}
		if errs := c.Errors.String(); errs != "" {
			fields = append(fields, "errors", errs)
		}

		log := logger.Info
		if code >= http.StatusInternalServerError {
			log = logger.Error
		} else if code >= http.StatusBadRequest {
			log = logger.Warn
		}
		log(c.Request.Context(), "http access", fields...)
	}
}

// GinRecoveryMiddleware 捕获 handler panic，统一返回 500
func GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "http handler panic", "path", c.Request.URL.Path, "panic", r)
				response.ErrorWithStatus(c, http.StatusInternalServerError, "internal server error", "")
			}
		}()
		c.Next()
	}
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Allow-Methods":     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers":     "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, " + RequestIDHeader + ", X-Session-ID",
}

// GinCORSMiddleware 放开跨域，预检请求直接返回 204
func GinCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range corsHeaders {
			h.Set(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// GRPCLoggingInterceptor 从 metadata 读取 x-request-id 并记录每次调用
func GRPCLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := requestIDFromMetadata(ctx)
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = withIDs(ctx, rid)

		began := time.Now()
		resp, err := handler(ctx, req)
		fields := []any{"method", info.FullMethod, "latency", time.Since(began)}
		if err == nil {
			logger.Info(ctx, "grpc call", fields...)
			return resp, nil
		}

		st := status.Convert(err)
		logger.Error(ctx, "grpc call failed", append(fields, "code", st.Code().String(), "message", st.Message())...)
		return resp, err
	}
}

// GRPCRecoveryInterceptor 把 panic 转换为 codes.Internal
func GRPCRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "grpc handler panic", "method", info.FullMethod, "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if ids := md.Get("x-request-id"); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
