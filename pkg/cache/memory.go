package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryCache 进程内缓存，进程退出后数据丢失
type memoryCache struct {
	cache      *gocache.Cache
	keyPrefix  string
	defaultTTL time.Duration
}

func newMemoryCache(cfg *Config) *memoryCache {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.CleanupInterval > 0 {
		cleanup = cfg.Memory.CleanupInterval
	}
	return &memoryCache{
		cache:      gocache.New(cfg.DefaultTTL, cleanup),
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
	}
}

func (m *memoryCache) buildKey(key string) string {
	return m.keyPrefix + key
}

func (m *memoryCache) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return m.defaultTTL
	}
	return ttl
}

func (m *memoryCache) Get(_ context.Context, key string, value any) error {
	data, found := m.cache.Get(m.buildKey(key))
	if !found {
		return ErrCacheMiss
	}
	bytes, ok := data.([]byte)
	if !ok {
		return ErrCacheSerialization.WithMessage("cache: invalid cache data type")
	}
	return unmarshal(bytes, value)
}

func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	bytes, err := marshal(value)
	if err != nil {
		return err
	}
	m.cache.Set(m.buildKey(key), bytes, m.ttl(ttl))
	return nil
}

func (m *memoryCache) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	bytes, err := marshal(value)
	if err != nil {
		return false, err
	}
	// Add 在键已存在且未过期时返回错误
	if err := m.cache.Add(m.buildKey(key), bytes, m.ttl(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.cache.Delete(m.buildKey(key))
	}
	return nil
}

func (m *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, found := m.cache.Get(m.buildKey(key))
	return found, nil
}

func (m *memoryCache) Ping(context.Context) error {
	return nil
}

func (m *memoryCache) Close() error {
	m.cache.Flush()
	return nil
}
