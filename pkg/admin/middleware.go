package admin

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/logger"
)

// accessLog 记录请求方法、路径、状态码、耗时
// 根据状态码选择日志级别，skip 中的路径不记录
func accessLog(log logger.Logger, skip ...string) gin.HandlerFunc {
	skipMap := make(map[string]bool, len(skip))
	for _, path := range skip {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "[admin] request completed", fields...)
		case status >= 400:
			log.WarnContext(ctx, "[admin] request completed", fields...)
		default:
			log.DebugContext(ctx, "[admin] request completed", fields...)
		}
	}
}

// tracingMiddleware 提取上游 TraceContext，为每个请求创建 Server Span
func tracingMiddleware(tracerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 每次请求时获取 tracer，避免 Provider 后初始化导致使用 noop
		tracer := otel.Tracer(tracerName)
		propagator := otel.GetTextMapPropagator()

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		spanName := c.FullPath()
		if spanName == "" {
			spanName = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("url.path", c.Request.URL.Path),
				attribute.String("http.route", c.FullPath()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
	}
}
