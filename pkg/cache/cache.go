package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache 插件共享的键值缓存
// 值以 JSON 编码保存，ttl 为 0 时使用默认过期时间
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// SetNX 键不存在时写入，返回是否写入成功
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// New 按驱动创建缓存实例，开启 Tracing 时包装链路追踪
func New(cfg *Config) (Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		c   Cache
		err error
	)
	switch cfg.Driver {
	case DriverRedis:
		c, err = newRedisCache(cfg)
	default:
		c = newMemoryCache(cfg)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Tracing {
		c = NewTracing(c)
	}
	return c, nil
}

// NewWithOptions 使用 Options 模式创建缓存实例
func NewWithOptions(opts ...Option) (Cache, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return New(cfg)
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, ErrCacheSerialization.WithError(err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return ErrCacheSerialization.WithError(err)
	}
	return nil
}
