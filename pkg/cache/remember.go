package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader 带 singleflight 的读穿缓存
// 同一 key 的并发未命中只执行一次 fn
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader 创建读穿缓存
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// Cache 返回底层缓存
func (l *Loader) Cache() Cache {
	return l.cache
}

// Forget 丢弃 key 正在进行的加载
func (l *Loader) Forget(key string) {
	l.group.Forget(key)
}

// Remember 命中直接返回，未命中时调用 fn 并写回缓存
// 写回失败不影响返回值
func Remember[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var result T
	if err := l.cache.Get(ctx, key, &result); err == nil {
		return result, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		var cached T
		if err := l.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
		loaded, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(ctx, key, loaded, ttl)
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
