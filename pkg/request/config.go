package request

import (
	"net/http"
	"time"

	"github.com/tokmz/qibot/pkg/logger"
)

// Config 插件访问外部 HTTP 接口的客户端配置
type Config struct {
	BaseURL string
	// Timeout 单次请求超时，含读取响应体
	Timeout time.Duration
	Headers map[string]string
	// Retry nil 不重试
	Retry *RetryConfig
	// MaxBodySize 响应体上限，超出返回 ErrRequestFailed
	MaxBodySize int64
	Logger      logger.Logger
	// Tracing 为请求创建 client Span 并注入 traceparent
	Tracing   bool
	Transport http.RoundTripper
}

// RetryConfig 指数退避重试，网络错误和 5xx 重试，超时和 4xx 不重试
type RetryConfig struct {
	// MaxAttempts 首次请求之外的最多重试次数
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		Headers:     map[string]string{"User-Agent": "qibot"},
		MaxBodySize: 4 << 20,
		Logger:      logger.Nop(),
	}
}

// DefaultRetryConfig 最多重试 3 次，退避 100ms 起步、上限 5s
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Option 配置选项函数
type Option func(*Config)

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHeader 每个请求都携带的请求头
func WithHeader(key, value string) Option {
	return func(c *Config) { c.Headers[key] = value }
}

func WithRetry(cfg *RetryConfig) Option {
	return func(c *Config) { c.Retry = cfg }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func WithTracing(enable bool) Option {
	return func(c *Config) { c.Tracing = enable }
}

// WithTransport 测试时替换 Transport
func WithTransport(t http.RoundTripper) Option {
	return func(c *Config) { c.Transport = t }
}
