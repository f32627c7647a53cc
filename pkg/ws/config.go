package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/logger"
)

// CallTimeout 单次调用的等待上限，不可配置
const CallTimeout = 5 * time.Second

// Config 适配器配置
type Config struct {
	// 连接配置
	URL               string        // ws:// 或 wss:// 地址
	AccessToken       string        // 非空时以 Bearer 方式放入握手头
	HandshakeTimeout  time.Duration // 握手超时时间
	ReadBufferSize    int           // 读缓冲区大小
	WriteBufferSize   int           // 写缓冲区大小
	EnableCompression bool          // 是否协商压缩
	MaxMessageSize    int64         // 单帧最大字节数

	// 心跳配置
	PingInterval time.Duration // ping 间隔
	PongWait     time.Duration // 读超时，收到任意帧或 pong 后顺延
	WriteWait    time.Duration // 单帧写超时

	// 发送队列大小
	QueueSize int

	Logger   logger.Logger
	Metrics  Metrics
	Dispatch []chain.DispatcherOption // 透传给分发器的选项
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		MaxMessageSize:   16 << 20, // 16MB，合并转发的结果可能很大
		PingInterval:     30 * time.Second,
		PongWait:         90 * time.Second,
		WriteWait:        10 * time.Second,
		QueueSize:        32,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.URL == "" {
		return invalidConfig("URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return invalidConfig(fmt.Sprintf("URL %q: %v", c.URL, err))
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return invalidConfig(fmt.Sprintf("URL scheme must be ws or wss, got %q", u.Scheme))
	}
	if c.HandshakeTimeout <= 0 {
		return invalidConfig(fmt.Sprintf("HandshakeTimeout must be positive, got %v", c.HandshakeTimeout))
	}
	if c.ReadBufferSize <= 0 {
		return invalidConfig(fmt.Sprintf("ReadBufferSize must be positive, got %d", c.ReadBufferSize))
	}
	if c.WriteBufferSize <= 0 {
		return invalidConfig(fmt.Sprintf("WriteBufferSize must be positive, got %d", c.WriteBufferSize))
	}
	if c.MaxMessageSize <= 0 {
		return invalidConfig(fmt.Sprintf("MaxMessageSize must be positive, got %d", c.MaxMessageSize))
	}
	if c.PingInterval <= 0 {
		return invalidConfig(fmt.Sprintf("PingInterval must be positive, got %v", c.PingInterval))
	}
	if c.PongWait <= c.PingInterval {
		return invalidConfig(fmt.Sprintf("PongWait (%v) must be greater than PingInterval (%v)",
			c.PongWait, c.PingInterval))
	}
	if c.WriteWait <= 0 {
		return invalidConfig(fmt.Sprintf("WriteWait must be positive, got %v", c.WriteWait))
	}
	if c.QueueSize <= 0 {
		return invalidConfig(fmt.Sprintf("QueueSize must be positive, got %d", c.QueueSize))
	}
	return nil
}

// header 握手请求头
func (c *Config) header() http.Header {
	h := http.Header{}
	if c.AccessToken != "" {
		h.Set("Authorization", "Bearer "+c.AccessToken)
	}
	return h
}

// Option 配置选项
type Option func(*Config)

// WithAccessToken 设置访问令牌
func WithAccessToken(token string) Option {
	return func(c *Config) {
		c.AccessToken = token
	}
}

// WithHandshakeTimeout 设置握手超时
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = timeout
	}
}

// WithPingInterval 设置 ping 间隔
func WithPingInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.PingInterval = interval
	}
}

// WithPongWait 设置读超时
func WithPongWait(wait time.Duration) Option {
	return func(c *Config) {
		c.PongWait = wait
	}
}

// WithWriteWait 设置写超时
func WithWriteWait(wait time.Duration) Option {
	return func(c *Config) {
		c.WriteWait = wait
	}
}

// WithMessageSizeLimit 设置消息大小限制
func WithMessageSizeLimit(size int64) Option {
	return func(c *Config) {
		c.MaxMessageSize = size
	}
}

// WithQueueSize 设置发送队列大小
func WithQueueSize(size int) Option {
	return func(c *Config) {
		c.QueueSize = size
	}
}

// WithEnableCompression 启用压缩
func WithEnableCompression(enable bool) Option {
	return func(c *Config) {
		c.EnableCompression = enable
	}
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics 设置监控
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// WithDispatchOptions 追加分发器选项，如处理器中间件
func WithDispatchOptions(opts ...chain.DispatcherOption) Option {
	return func(c *Config) {
		c.Dispatch = append(c.Dispatch, opts...)
	}
}
