package cache

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const cacheTracerName = "github.com/tokmz/qibot/cache"

// tracedCache 链路追踪缓存装饰器
type tracedCache struct {
	Cache
	tracer trace.Tracer
}

// NewTracing 创建带链路追踪的缓存实例
func NewTracing(c Cache) Cache {
	return &tracedCache{
		Cache:  c,
		tracer: otel.Tracer(cacheTracerName),
	}
}

// wrap 包装操作，未命中不记为错误
func (t *tracedCache) wrap(ctx context.Context, operation, key string, fn func(ctx context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	start := time.Now()
	err := fn(ctx)
	span.SetAttributes(attribute.Int64("cache.duration_ms", time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrCacheMiss):
		span.SetAttributes(attribute.Bool("cache.hit", false))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (t *tracedCache) Get(ctx context.Context, key string, value any) error {
	return t.wrap(ctx, "cache.Get", key, func(ctx context.Context) error {
		return t.Cache.Get(ctx, key, value)
	})
}

func (t *tracedCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return t.wrap(ctx, "cache.Set", key, func(ctx context.Context) error {
		return t.Cache.Set(ctx, key, value, ttl)
	})
}

func (t *tracedCache) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	var ok bool
	err := t.wrap(ctx, "cache.SetNX", key, func(ctx context.Context) error {
		var err error
		ok, err = t.Cache.SetNX(ctx, key, value, ttl)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache.written", ok))
		return err
	})
	return ok, err
}

func (t *tracedCache) Delete(ctx context.Context, keys ...string) error {
	ctx, span := t.tracer.Start(ctx, "cache.Delete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("cache.keys_count", len(keys)))

	err := t.Cache.Delete(ctx, keys...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (t *tracedCache) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := t.wrap(ctx, "cache.Exists", key, func(ctx context.Context) error {
		var err error
		found, err = t.Cache.Exists(ctx, key)
		return err
	})
	return found, err
}
