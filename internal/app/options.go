package app

import (
	"io"
	"os"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/logger"
)

type options struct {
	logger logger.Logger
	output io.Writer
	extra  []*chain.Plugin
}

// Option 组装选项
type Option func(*options)

func defaultOptions() *options {
	return &options{output: os.Stdout}
}

// WithLogger 使用给定日志器，不再按配置创建
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOutput banner 输出位置
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithPlugins 在内置插件之后追加插件
func WithPlugins(plugins ...*chain.Plugin) Option {
	return func(o *options) {
		o.extra = append(o.extra, plugins...)
	}
}
