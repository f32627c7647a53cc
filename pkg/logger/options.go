package logger

import "io"

// Option 配置选项函数
type Option func(*Config)

func WithLevel(level Level) Option {
	return func(c *Config) {
		c.Level = level
	}
}

func WithFormat(format Format) Option {
	return func(c *Config) {
		c.Format = format
	}
}

// WithOutput 控制台输出改写到 w
func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Console = true
		c.Output = w
	}
}

// WithFile 写入文件并按 rotate 轮转，rotate 为 nil 使用默认轮转参数
func WithFile(path string, rotate *RotateConfig) Option {
	return func(c *Config) {
		c.File = path
		c.Rotate = rotate
	}
}

func WithSampling(initial, thereafter int) Option {
	return func(c *Config) {
		c.Sampling = &SamplingConfig{Initial: initial, Thereafter: thereafter}
	}
}

// WithCaller 记录调用位置
func WithCaller(enable bool) Option {
	return func(c *Config) {
		c.Caller = enable
	}
}

// WithStacktrace Error 及以上附带堆栈
func WithStacktrace(enable bool) Option {
	return func(c *Config) {
		c.Stacktrace = enable
	}
}

func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

func WithHook(hooks ...Hook) Option {
	return func(c *Config) {
		c.Hooks = append(c.Hooks, hooks...)
	}
}
