package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/tracing"
)

// Middleware 处理器中间件，next 为链上的下一个处理器
type Middleware func(ctx context.Context, c *Context, u *MatchUnion, next Handler) (bool, error)

// Dispatcher 按固定优先级顺序把事件交给匹配的处理器
// unions 与 plugins 在创建后只读，可被任意多个分发协程共享
type Dispatcher struct {
	unions     []*MatchUnion
	compiled   []Handler // 预编译的中间件链，与 unions 一一对应
	plugins    []*Plugin
	middleware []Middleware
	logger     logger.Logger
}

// DispatcherOption 分发器选项
type DispatcherOption func(*Dispatcher)

// WithLogger 设置日志器
func WithLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMiddleware 添加中间件，按添加顺序由外到内执行
func WithMiddleware(mw ...Middleware) DispatcherOption {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, mw...)
	}
}

// NewDispatcher 创建分发器，unions 必须已经按优先级排好序
func NewDispatcher(unions []*MatchUnion, plugins []*Plugin, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		unions:  unions,
		plugins: plugins,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	// 预编译所有处理器链
	d.compiled = make([]Handler, len(unions))
	for i, u := range unions {
		d.compiled[i] = d.buildChain(u)
	}
	return d
}

// buildChain 从后向前构建中间件链
func (d *Dispatcher) buildChain(u *MatchUnion) Handler {
	final := u.handler
	for i := len(d.middleware) - 1; i >= 0; i-- {
		mw := d.middleware[i]
		next := final
		final = func(ctx context.Context, c *Context) (bool, error) {
			return mw(ctx, c, u, next)
		}
	}
	return final
}

// Unions 排好序的 MatchUnion
func (d *Dispatcher) Unions() []*MatchUnion {
	return d.unions
}

// Plugins 插件列表
func (d *Dispatcher) Plugins() []*Plugin {
	return d.plugins
}

// Dispatch 构建 Context 并按顺序调用匹配的处理器，返回事件是否被处理
// 处理器返回 error 或 panic 时记录日志并继续下一个候选
func (d *Dispatcher) Dispatch(ctx context.Context, c caller.Caller, ev onebot.Event) bool {
	ctx = logger.WithTraceID(ctx, uuid.NewString())
	if uid, ok := onebot.UserIDOf(ev); ok {
		ctx = logger.WithUserID(ctx, uid)
	}
	if gid, ok := onebot.GroupIDOf(ev); ok {
		ctx = logger.WithGroupID(ctx, gid)
	}

	ctx, span := tracing.StartSpan(ctx, "onebot.dispatch",
		trace.WithAttributes(attribute.String("onebot.event", ev.Name())))
	defer span.End()

	cc := NewContext(c, ev, d.plugins)
	for i, u := range d.unions {
		if !u.matcher.IsMatch(ev) {
			continue
		}
		handled, err := d.invoke(ctx, d.compiled[i], u, cc)
		if err != nil {
			d.logger.ErrorContext(ctx, "[dispatch] 处理器返回错误",
				zap.String("plugin", u.plugin),
				zap.String("union", u.description),
				zap.String("matcher", u.matcher.String()),
				zap.Error(err),
			)
			continue
		}
		if handled {
			span.SetAttributes(attribute.String("onebot.handled_by", u.description))
			d.logger.DebugContext(ctx, "[dispatch] 事件已处理",
				zap.String("event", ev.Name()),
				zap.String("plugin", u.plugin),
				zap.String("union", u.description),
			)
			return true
		}
	}
	return false
}

// invoke 调用单个处理器，panic 被转换为 ErrHandler
func (d *Dispatcher) invoke(ctx context.Context, h Handler, u *MatchUnion, cc *Context) (handled bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "handler "+u.description,
		trace.WithAttributes(
			attribute.String("chain.plugin", u.plugin),
			attribute.Int("chain.priority", u.priority),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			handled = false
			err = errors.ErrHandler.WithMessage(fmt.Sprintf("handler panic: %v", r))
		}
		if err != nil {
			tracing.RecordError(span, err)
			err = wrapHandlerError(err)
		}
	}()

	return h(ctx, cc)
}

// wrapHandlerError 统一包装为 ErrHandler，保留原始错误链
func wrapHandlerError(err error) error {
	if errors.Is(err, errors.ErrHandler) {
		return err
	}
	return errors.ErrHandler.WithError(err)
}

// Timed 记录处理器耗时的中间件
func Timed(observe func(u *MatchUnion, handled bool, err error, d time.Duration)) Middleware {
	return func(ctx context.Context, c *Context, u *MatchUnion, next Handler) (bool, error) {
		start := time.Now()
		handled, err := next(ctx, c)
		observe(u, handled, err, time.Since(start))
		return handled, err
	}
}
