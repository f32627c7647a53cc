package tracing

import (
	"time"

	"github.com/tokmz/qibot/pkg/errors"
)

// 导出器类型
const (
	ExporterOTLP     = "otlp"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterStdout   = "stdout"
	ExporterNoop     = "noop"
)

// 采样策略
const (
	SamplingAlways      = "always"
	SamplingNever       = "never"
	SamplingRatio       = "ratio"
	SamplingParentBased = "parent_based"
)

// Config 链路追踪配置
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// ExporterType otlp/otlp-grpc/stdout/noop
	ExporterType     string
	ExporterEndpoint string
	ExporterHeaders  map[string]string
	Insecure         bool

	// SamplingType always/never/ratio/parent_based
	// 设置了 OTEL_TRACES_SAMPLER 环境变量时由 SDK 按环境变量采样
	SamplingType string
	SamplingRate float64

	// ResourceAttributes 附加到所有 Span 的资源标签，如机器人账号
	ResourceAttributes map[string]string

	BatchTimeout       time.Duration
	MaxExportBatchSize int
	MaxQueueSize       int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		ServiceName:        "qibot",
		ServiceVersion:     "dev",
		Environment:        "development",
		ExporterType:       ExporterNoop,
		SamplingType:       SamplingParentBased,
		SamplingRate:       1.0,
		ResourceAttributes: make(map[string]string),
		BatchTimeout:       5 * time.Second,
		MaxExportBatchSize: 512,
		MaxQueueSize:       2048,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return invalid("service name is required")
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return invalid("sampling rate must be between 0.0 and 1.0")
	}
	switch c.ExporterType {
	case ExporterOTLP, ExporterOTLPGRPC, ExporterStdout, ExporterNoop:
	default:
		return invalid("invalid exporter type: " + c.ExporterType)
	}
	switch c.SamplingType {
	case "", SamplingAlways, SamplingNever, SamplingRatio, SamplingParentBased:
	default:
		return invalid("invalid sampling type: " + c.SamplingType)
	}
	return nil
}

func invalid(message string) error {
	return errors.ErrInvalidConfig.WithMessage("tracing: " + message)
}
