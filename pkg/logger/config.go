package logger

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
)

// Format 日志格式
type Format string

const (
	// JSONFormat 每行一个 JSON 对象
	JSONFormat Format = "json"
	// ConsoleFormat 便于终端阅读
	ConsoleFormat Format = "console"
)

func (f Format) String() string {
	return string(f)
}

// IsValid 是否为已知格式
func (f Format) IsValid() bool {
	return f == JSONFormat || f == ConsoleFormat
}

// Config 日志配置
type Config struct {
	Level  Level
	Format Format

	// Console 写入 Output，Output 为空时写 os.Stdout
	Console bool
	Output  io.Writer

	// File 非空时按大小轮转写入该文件
	File   string
	Rotate *RotateConfig

	// Sampling 高频日志（如心跳、事件分发）按秒采样，nil 不采样
	Sampling *SamplingConfig

	Caller     bool
	Stacktrace bool

	// Name 日志器名称，输出为 logger 字段
	Name  string
	Hooks []Hook
}

// RotateConfig 文件轮转配置，对应 lumberjack.Logger
type RotateConfig struct {
	MaxSize    int // MB，默认 100
	MaxAge     int // 天，默认 30
	MaxBackups int // 默认 10
	Compress   bool
}

// SamplingConfig 每秒前 Initial 条全部记录，之后每 Thereafter 条记录 1 条
type SamplingConfig struct {
	Initial    int
	Thereafter int
}

func (c *Config) setDefaults() {
	if c.Level == 0 {
		c.Level = InfoLevel
	}
	if c.Format == "" {
		c.Format = JSONFormat
	}
	if !c.Console && c.File == "" {
		c.Console = true
	}
	if c.Console && c.Output == nil {
		c.Output = os.Stdout
	}
	if c.File != "" {
		if c.Rotate == nil {
			c.Rotate = &RotateConfig{}
		}
		if c.Rotate.MaxSize == 0 {
			c.Rotate.MaxSize = 100
		}
		if c.Rotate.MaxAge == 0 {
			c.Rotate.MaxAge = 30
		}
		if c.Rotate.MaxBackups == 0 {
			c.Rotate.MaxBackups = 10
		}
	}
	if s := c.Sampling; s != nil {
		if s.Initial == 0 {
			s.Initial = 100
		}
		if s.Thereafter == 0 {
			s.Thereafter = 100
		}
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
