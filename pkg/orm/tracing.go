package orm

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const gormTracerName = "github.com/tokmz/qibot/orm"

// TracingPlugin GORM 链路追踪插件
type TracingPlugin struct {
	// withSQL 记录完整 SQL，可能包含用户数据
	withSQL bool
}

// TracingOption 追踪插件选项
type TracingOption func(*TracingPlugin)

// WithSQLTrace 记录 SQL 语句
func WithSQLTrace(enable bool) TracingOption {
	return func(p *TracingPlugin) {
		p.withSQL = enable
	}
}

// NewTracingPlugin 创建 GORM 追踪插件
func NewTracingPlugin(opts ...TracingOption) *TracingPlugin {
	p := &TracingPlugin{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name 插件名称
func (p *TracingPlugin) Name() string {
	return "qibot:tracing"
}

// registrar gorm 回调的注册入口
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// Initialize 为增删改查及 Row/Raw 注册前后回调
func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	ops := []struct {
		name          string
		before, after registrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, op := range ops {
		if err := op.before.Register("qibot:before_"+op.name, p.before("gorm."+op.name)); err != nil {
			return err
		}
		if err := op.after.Register("qibot:after_"+op.name, p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *TracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, _ = otel.Tracer(gormTracerName).Start(ctx, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", db.Dialector.Name()),
				attribute.String("db.operation", operation),
			),
		)
		db.Statement.Context = ctx
	}
}

func (p *TracingPlugin) after(db *gorm.DB) {
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	defer span.End()

	if p.withSQL && db.Statement.SQL.Len() > 0 {
		span.SetAttributes(attribute.String("db.statement", db.Statement.SQL.String()))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !stderrors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
