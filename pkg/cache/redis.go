package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache Redis 缓存实现
type redisCache struct {
	client     redis.UniversalClient
	keyPrefix  string
	defaultTTL time.Duration
}

func newRedisCache(cfg *Config) (*redisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ErrCacheConnection.WithError(err)
	}

	return newRedisCacheWithClient(client, cfg), nil
}

// newRedisCacheWithClient 使用已有客户端
func newRedisCacheWithClient(client redis.UniversalClient, cfg *Config) *redisCache {
	return &redisCache{
		client:     client,
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
	}
}

func (r *redisCache) buildKey(key string) string {
	return r.keyPrefix + key
}

func (r *redisCache) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return r.defaultTTL
	}
	return ttl
}

func (r *redisCache) Get(ctx context.Context, key string, value any) error {
	data, err := r.client.Get(ctx, r.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return ErrCacheOperation.WithError(err)
	}
	return unmarshal(data, value)
}

func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	bytes, err := marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.buildKey(key), bytes, r.ttl(ttl)).Err(); err != nil {
		return ErrCacheOperation.WithError(err)
	}
	return nil
}

func (r *redisCache) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	bytes, err := marshal(value)
	if err != nil {
		return false, err
	}
	ok, err := r.client.SetNX(ctx, r.buildKey(key), bytes, r.ttl(ttl)).Result()
	if err != nil {
		return false, ErrCacheOperation.WithError(err)
	}
	return ok, nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.buildKey(key)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return ErrCacheOperation.WithError(err)
	}
	return nil
}

func (r *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.buildKey(key)).Result()
	if err != nil {
		return false, ErrCacheOperation.WithError(err)
	}
	return n > 0, nil
}

func (r *redisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return ErrCacheConnection.WithError(err)
	}
	return nil
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
