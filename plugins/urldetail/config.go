package urldetail

import (
	"time"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/request"
)

// Config 插件配置
type Config struct {
	// TTL 详情缓存时间
	TTL time.Duration
	// YouTubeKey YouTube Data API Key，空表示不识别 YouTube 链接
	YouTubeKey string
	// Recognizers 追加的识别器
	Recognizers []Recognizer

	Client *request.Client
	Cache  cache.Cache
	Logger logger.Logger
}

// Option 配置选项函数
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		TTL:    time.Hour,
		Logger: logger.Nop(),
	}
}

// WithTTL 设置详情缓存时间
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.TTL = ttl
		}
	}
}

// WithYouTubeKey 启用 YouTube 识别
func WithYouTubeKey(key string) Option {
	return func(c *Config) {
		c.YouTubeKey = key
	}
}

// WithRecognizer 追加识别器
func WithRecognizer(r ...Recognizer) Option {
	return func(c *Config) {
		c.Recognizers = append(c.Recognizers, r...)
	}
}

func WithClient(client *request.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

func WithCache(store cache.Cache) Option {
	return func(c *Config) {
		c.Cache = store
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
