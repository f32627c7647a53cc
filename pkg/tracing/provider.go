package tracing

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var (
	mu      sync.Mutex
	current *sdktrace.TracerProvider
)

// NewTracerProvider 创建 TracerProvider 并设为全局，同时设置 W3C 传播器
// 已有全局 Provider 时先关闭旧的
func NewTracerProvider(cfg *Config) (*sdktrace.TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, invalid("create exporter: " + err.Error())
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, invalid("create resource: " + err.Error())
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if os.Getenv("OTEL_TRACES_SAMPLER") == "" {
		opts = append(opts, sdktrace.WithSampler(newSampler(cfg)))
	}
	switch {
	case exporter == nil:
	case cfg.ExporterType == ExporterStdout:
		// 调试时逐条输出
		opts = append(opts, sdktrace.WithSyncer(exporter))
	default:
		opts = append(opts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	mu.Lock()
	prev := current
	current = tp
	mu.Unlock()
	if prev != nil {
		_ = prev.Shutdown(ctx)
	}
	return tp, nil
}

func newSampler(cfg *Config) sdktrace.Sampler {
	switch cfg.SamplingType {
	case SamplingAlways:
		return sdktrace.AlwaysSample()
	case SamplingNever:
		return sdktrace.NeverSample()
	case SamplingRatio:
		return sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))
	}
}

// newResource OTEL_RESOURCE_ATTRIBUTES 中的同名标签覆盖配置
func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	for k, v := range cfg.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
	)
}

// Shutdown 导出剩余 Span 并关闭全局 Provider
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := current
	current = nil
	mu.Unlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// GetTracerProvider 当前由 NewTracerProvider 设置的 Provider
func GetTracerProvider() *sdktrace.TracerProvider {
	mu.Lock()
	defer mu.Unlock()
	return current
}
