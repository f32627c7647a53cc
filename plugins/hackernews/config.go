package hackernews

import (
	"time"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/request"
)

// DefaultBaseURL Hacker News 官方 API
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// Config 插件配置
type Config struct {
	BaseURL string
	// Limit #hn 与定时推送的条数
	Limit int

	// Cron 定时推送表达式，空表示不推送
	Cron   string
	Groups []int64

	// Concurrency 并发拉取条目数
	Concurrency int
	TopTTL      time.Duration
	ItemTTL     time.Duration
	// PushedTTL 已推送标记的保留时间
	PushedTTL time.Duration

	Client *request.Client
	Cache  cache.Cache
	Logger logger.Logger
}

// Option 配置选项函数
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Limit:       10,
		Concurrency: 5,
		TopTTL:      5 * time.Minute,
		ItemTTL:     time.Hour,
		PushedTTL:   7 * 24 * time.Hour,
		Logger:      logger.Nop(),
	}
}

// WithBaseURL 设置 API 地址
func WithBaseURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

// WithLimit 设置条数
func WithLimit(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Limit = n
		}
	}
}

// WithPush 定时推送到指定群
func WithPush(spec string, groups ...int64) Option {
	return func(c *Config) {
		c.Cron = spec
		c.Groups = groups
	}
}

// WithClient 设置 HTTP 客户端，未设置时按 BaseURL 创建
func WithClient(client *request.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

// WithCache 设置缓存，未设置时使用进程内缓存
func WithCache(store cache.Cache) Option {
	return func(c *Config) {
		c.Cache = store
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
