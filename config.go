package qibot

import (
	"io"
	"os"

	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/ws"
)

// ShutdownConfig 关机配置
type ShutdownConfig struct {
	// BeforeShutdown 开始关机时回调（信号、ctx 取消或连接断开）
	BeforeShutdown func()

	// AfterShutdown 所有组件退出后回调
	AfterShutdown func()
}

// Config 机器人配置
type Config struct {
	// URL OneBot 正向 websocket 地址
	URL string

	// AccessToken 访问令牌，为空表示不鉴权
	AccessToken string

	// WS 透传给适配器的选项
	WS []ws.Option

	// Logger 日志器，默认 Nop
	Logger logger.Logger

	// Banner 启动时是否打印 banner 和处理器表
	Banner bool

	// Output banner 输出位置，默认 stdout
	Output io.Writer

	// HandleSignals 是否在 SIGINT/SIGTERM 时优雅退出
	HandleSignals bool

	// Shutdown 关机配置
	Shutdown ShutdownConfig
}

// Option 配置选项函数
type Option func(*Config)

// defaultConfig 返回默认配置
func defaultConfig() *Config {
	return &Config{
		Logger:        logger.Nop(),
		Banner:        true,
		Output:        os.Stdout,
		HandleSignals: true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.ErrInvalidConfig.WithMessage("bot: URL is required")
	}
	return nil
}

// wsOptions 组装适配器选项，显式传入的 WS 选项优先
func (c *Config) wsOptions() []ws.Option {
	opts := []ws.Option{ws.WithLogger(c.Logger)}
	if c.AccessToken != "" {
		opts = append(opts, ws.WithAccessToken(c.AccessToken))
	}
	return append(opts, c.WS...)
}

// WithURL 设置 websocket 地址
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithAccessToken 设置访问令牌
func WithAccessToken(token string) Option {
	return func(c *Config) {
		c.AccessToken = token
	}
}

// WithWSOptions 追加适配器选项
func WithWSOptions(opts ...ws.Option) Option {
	return func(c *Config) {
		c.WS = append(c.WS, opts...)
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

// WithBanner 设置是否打印 banner
func WithBanner(enable bool) Option {
	return func(c *Config) {
		c.Banner = enable
	}
}

// WithOutput 设置 banner 输出位置
func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Output = w
	}
}

// WithSignals 设置是否处理退出信号
func WithSignals(enable bool) Option {
	return func(c *Config) {
		c.HandleSignals = enable
	}
}

// WithBeforeShutdown 设置关机前回调
func WithBeforeShutdown(fn func()) Option {
	return func(c *Config) {
		c.Shutdown.BeforeShutdown = fn
	}
}

// WithAfterShutdown 设置关机后回调
func WithAfterShutdown(fn func()) Option {
	return func(c *Config) {
		c.Shutdown.AfterShutdown = fn
	}
}
