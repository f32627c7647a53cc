package logger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	// *Context 附加事件上下文中的 trace_id、span_id、user_id、group_id
	DebugContext(ctx context.Context, msg string, fields ...zap.Field)
	InfoContext(ctx context.Context, msg string, fields ...zap.Field)
	WarnContext(ctx context.Context, msg string, fields ...zap.Field)
	ErrorContext(ctx context.Context, msg string, fields ...zap.Field)

	With(fields ...zap.Field) Logger
	WithContext(ctx context.Context) Logger
	Named(name string) Logger
	Sync() error
	SetLevel(level Level)
	Level() Level
}

type logger struct {
	zap   *zap.Logger
	level zap.AtomicLevel
}

// New 按配置创建 Logger，config 为 nil 时输出 JSON 到标准输出
func New(config *Config) (Logger, error) {
	if config == nil {
		config = &Config{}
	}
	config.setDefaults()

	enc := encoderConfig()
	var encoder zapcore.Encoder
	if config.Format == ConsoleFormat {
		encoder = zapcore.NewConsoleEncoder(enc)
	} else {
		encoder = zapcore.NewJSONEncoder(enc)
	}

	var writers []zapcore.WriteSyncer
	if config.Console {
		writers = append(writers, zapcore.AddSync(config.Output))
	}
	if config.File != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.Rotate.MaxSize,
			MaxAge:     config.Rotate.MaxAge,
			MaxBackups: config.Rotate.MaxBackups,
			LocalTime:  true,
			Compress:   config.Rotate.Compress,
		}))
	}

	level := zap.NewAtomicLevelAt(config.Level.toZapLevel())
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	if len(config.Hooks) > 0 {
		core = &hookCore{Core: core, hooks: config.Hooks}
	}
	// 采样包在最外层，被丢弃的日志不触发 Hook
	if s := config.Sampling; s != nil {
		core = zapcore.NewSamplerWithOptions(core, time.Second, s.Initial, s.Thereafter)
	}

	var opts []zap.Option
	if config.Caller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if config.Stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	z := zap.New(core, opts...)
	if config.Name != "" {
		z = z.Named(config.Name)
	}
	return &logger{zap: z, level: level}, nil
}

// NewWithOptions 使用 Option 创建 Logger
func NewWithOptions(opts ...Option) (Logger, error) {
	config := &Config{}
	for _, opt := range opts {
		opt(config)
	}
	return New(config)
}

// Nop 丢弃所有输出，用于测试和未配置日志的组件
func Nop() Logger {
	return &logger{
		zap:   zap.NewNop(),
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
}

// NewWithCore 基于已有 Core 创建，测试中配合 zaptest/observer 使用
func NewWithCore(core zapcore.Core) Logger {
	return &logger{
		zap:   zap.New(core),
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

func (l *logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

func (l *logger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(contextFields(ctx, fields)...)
	}
}

func (l *logger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Info(msg, contextFields(ctx, fields)...)
}

func (l *logger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Warn(msg, contextFields(ctx, fields)...)
}

func (l *logger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Error(msg, contextFields(ctx, fields)...)
}

func (l *logger) With(fields ...zap.Field) Logger {
	return &logger{zap: l.zap.With(fields...), level: l.level}
}

// WithContext 子 Logger 固定携带 ctx 中的事件字段
func (l *logger) WithContext(ctx context.Context) Logger {
	return l.With(eventFields(ctx)...)
}

func (l *logger) Named(name string) Logger {
	return &logger{zap: l.zap.Named(name), level: l.level}
}

func (l *logger) Sync() error {
	return l.zap.Sync()
}

// SetLevel 运行期调整级别，对所有子 Logger 生效
func (l *logger) SetLevel(level Level) {
	l.level.SetLevel(level.toZapLevel())
}

func (l *logger) Level() Level {
	return fromZapLevel(l.level.Level())
}

func contextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+4)
	out = append(out, eventFields(ctx)...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out = append(out, zap.String("span_id", sc.SpanID().String()))
	}
	return append(out, fields...)
}

func eventFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if traceID := TraceIDFrom(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if uid, ok := ctx.Value(userIDKey).(int64); ok && uid != 0 {
		fields = append(fields, zap.Int64("user_id", uid))
	}
	if gid, ok := ctx.Value(groupIDKey).(int64); ok && gid != 0 {
		fields = append(fields, zap.Int64("group_id", gid))
	}
	return fields
}
