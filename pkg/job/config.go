package job

import (
	"time"

	"github.com/tokmz/qibot/pkg/logger"
)

// Config 调度器配置
type Config struct {
	// ConcurrentRuns 同时执行的任务数上限，超出时本次触发跳过
	ConcurrentRuns int
	// JobTimeout 默认单次执行超时
	JobTimeout time.Duration
	// RetryDelay 失败重试间隔
	RetryDelay time.Duration
	// Location cron 表达式使用的时区
	Location *time.Location

	Logger logger.Logger
	// Store 执行记录存储，默认内存
	Store RunStore
}

// Option 配置选项
type Option func(*Config)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		ConcurrentRuns: 5,
		JobTimeout:     5 * time.Minute,
		RetryDelay:     5 * time.Second,
		Location:       time.Local,
		Logger:         logger.Nop(),
	}
}

// WithConcurrentRuns 设置并发执行数
func WithConcurrentRuns(n int) Option {
	return func(c *Config) {
		c.ConcurrentRuns = n
	}
}

// WithJobTimeout 设置默认任务超时
func WithJobTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.JobTimeout = timeout
	}
}

// WithRetryDelay 设置重试间隔
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithLocation 设置时区
func WithLocation(loc *time.Location) Option {
	return func(c *Config) {
		c.Location = loc
	}
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithStore 设置执行记录存储
func WithStore(store RunStore) Option {
	return func(c *Config) {
		c.Store = store
	}
}
