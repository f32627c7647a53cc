package cache

import "time"

// DriverType 驱动类型
type DriverType string

const (
	DriverRedis  DriverType = "redis"
	DriverMemory DriverType = "memory"
)

// Config 缓存配置
type Config struct {
	Driver DriverType

	Redis  *RedisConfig
	Memory *MemoryConfig

	// KeyPrefix 键前缀，多个机器人共用一个 Redis 时区分
	KeyPrefix string

	DefaultTTL time.Duration

	// Tracing 为每次操作创建 Span
	Tracing bool
}

// RedisConfig Redis 配置，仅支持单机
type RedisConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MemoryConfig 内存缓存配置
type MemoryConfig struct {
	CleanupInterval time.Duration // 过期键清理间隔
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Driver:     DriverMemory,
		KeyPrefix:  "qibot:",
		DefaultTTL: 10 * time.Minute,
		Memory:     &MemoryConfig{CleanupInterval: 5 * time.Minute},
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Option 配置选项
type Option func(*Config)

// WithRedis 使用 Redis 驱动
func WithRedis(cfg *RedisConfig) Option {
	return func(c *Config) {
		c.Driver = DriverRedis
		c.Redis = cfg
	}
}

// WithMemory 使用内存驱动
func WithMemory(cfg *MemoryConfig) Option {
	return func(c *Config) {
		c.Driver = DriverMemory
		c.Memory = cfg
	}
}

// WithKeyPrefix 设置键前缀
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithDefaultTTL 设置默认 TTL
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.DefaultTTL = ttl
	}
}

// WithTracing 开启链路追踪
func WithTracing(enabled bool) Option {
	return func(c *Config) {
		c.Tracing = enabled
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory, "":
		return nil
	case DriverRedis:
		if c.Redis == nil || c.Redis.Addr == "" {
			return ErrCacheInvalidConfig.WithMessage("cache: redis addr is required")
		}
		return nil
	default:
		return ErrCacheInvalidConfig.WithMessage("cache: invalid driver " + string(c.Driver))
	}
}
