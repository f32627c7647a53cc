package cache

import "github.com/tokmz/qibot/pkg/errors"

// 预定义错误
var (
	ErrCacheMiss          = errors.New(3101, "cache: key not found", nil)
	ErrCacheConnection    = errors.New(3102, "cache: connection failed", nil)
	ErrCacheSerialization = errors.New(3103, "cache: serialization failed", nil)
	ErrCacheInvalidConfig = errors.ErrInvalidConfig.WithMessage("cache: invalid config")
	ErrCacheOperation     = errors.New(3104, "cache: operation failed", nil)
)
