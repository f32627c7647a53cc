package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/tracing"
)

var _ caller.Caller = (*Adapter)(nil)

// Adapter 持有一条 websocket 连接，把调用按 echo 关联到响应，并分发入站事件
// 连接断开即终态，重连需要重新 Dial
type Adapter struct {
	config  *Config
	conn    *websocket.Conn
	queue   chan []byte
	pending pendingTable
	status  *statusCell
	events  *EventBus
	logger  logger.Logger
	metrics Metrics

	callTimeout time.Duration
	closeOnce   sync.Once
}

// Dial 建立连接，返回处于 NotConnected 的适配器
func Dial(ctx context.Context, url string, opts ...Option) (*Adapter, error) {
	config := DefaultConfig()
	config.URL = url
	for _, opt := range opts {
		opt(config)
	}
	return DialConfig(ctx, config)
}

// DialConfig 使用完整配置建立连接
func DialConfig(ctx context.Context, config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  config.HandshakeTimeout,
		ReadBufferSize:    config.ReadBufferSize,
		WriteBufferSize:   config.WriteBufferSize,
		EnableCompression: config.EnableCompression,
	}
	conn, resp, err := dialer.DialContext(ctx, config.URL, config.header())
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (http status %d)", err, resp.StatusCode)
		}
		return nil, transportError("dial", err)
	}

	config.Logger.Info("[ws] 连接已建立", zap.String("url", config.URL))
	return newAdapter(conn, config), nil
}

func newAdapter(conn *websocket.Conn, config *Config) *Adapter {
	return &Adapter{
		config:      config,
		conn:        conn,
		queue:       make(chan []byte, config.QueueSize),
		status:      newStatusCell(),
		events:      NewEventBus(2),
		logger:      config.Logger,
		metrics:     config.Metrics,
		callTimeout: CallTimeout,
	}
}

// Status 当前连接状态
func (a *Adapter) Status() Status {
	return a.status.load()
}

// Changed 下一次状态变更时关闭的通道
func (a *Adapter) Changed() <-chan struct{} {
	_, ch := a.status.watch()
	return ch
}

// Done 进入 Disconnected 时关闭
func (a *Adapter) Done() <-chan struct{} {
	return a.status.done
}

// Events 生命周期事件总线
func (a *Adapter) Events() *EventBus {
	return a.events
}

// Pending 等待响应的调用数量
func (a *Adapter) Pending() int {
	return a.pending.len()
}

// Call 发送请求并等待对应 echo 的响应
// 非 Connected 立即返回 ErrStatus；超过 CallTimeout 返回 ErrTimeout；连接终止返回 ErrTransport
func (a *Adapter) Call(ctx context.Context, req onebot.Request) (*onebot.Response, error) {
	action := string(req.Action)
	ctx, span := tracing.StartSpan(ctx, "onebot.call "+action,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("onebot.action", action)))
	defer span.End()

	start := time.Now()
	resp, err := a.call(ctx, req)
	a.metrics.RecordCall(action, outcomeOf(resp, err), time.Since(start))
	if err != nil {
		tracing.RecordError(span, err)
		a.logger.DebugContext(ctx, "[ws] 调用失败", zap.String("action", action), zap.Error(err))
	}
	return resp, err
}

func (a *Adapter) call(ctx context.Context, req onebot.Request) (*onebot.Response, error) {
	if st := a.status.load(); st.State != StateConnected {
		return nil, ErrNotConnected.WithMessage("ws: not connected: " + st.String())
	}

	echo, ch := a.pending.register()
	defer func() {
		a.pending.remove(echo)
		a.metrics.SetPendingCalls(a.pending.len())
	}()
	a.metrics.SetPendingCalls(a.pending.len())

	req.Echo = echo
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.ErrTransport.WithMessage("ws: encode request").WithError(err)
	}

	timer := time.NewTimer(a.callTimeout)
	defer timer.Stop()

	select {
	case a.queue <- data:
	case <-timer.C:
		return nil, a.timeoutError(req)
	case <-a.status.done:
		return nil, a.closedError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return nil, a.timeoutError(req)
	case <-a.status.done:
		return nil, a.closedError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Adapter) timeoutError(req onebot.Request) error {
	return errors.ErrTimeout.WithMessage(fmt.Sprintf("ws: action %s (echo %d) timed out after %v",
		req.Action, req.Echo, a.callTimeout))
}

func (a *Adapter) closedError() error {
	return ErrConnectionClosed.WithError(a.status.load().Reason)
}

// Run 启动发送与接收循环，阻塞到两者都退出
// ctx 取消时主动关闭连接并返回 context.Canceled；对端正常关闭返回 nil；否则返回首个导致断开的错误
func (a *Adapter) Run(ctx context.Context, unions []*chain.MatchUnion, plugins []*chain.Plugin) error {
	if !a.status.connect() {
		if st := a.status.load(); st.State == StateConnected {
			return ErrAlreadyRunning
		}
		return ErrNotConnected.WithMessage("ws: adapter cannot run: " + a.status.load().String())
	}
	defer a.events.Close()

	a.metrics.SetConnected(true)
	a.events.Publish(Event{Type: EventConnected})
	a.logger.Info("[ws] 开始收发", zap.Int("unions", len(unions)), zap.Int("plugins", len(plugins)))

	opts := []chain.DispatcherOption{
		chain.WithLogger(a.logger),
		chain.WithMiddleware(chain.Timed(func(u *chain.MatchUnion, handled bool, err error, d time.Duration) {
			a.metrics.RecordHandler(u.Plugin(), u.Description(), handled, err, d)
		})),
	}
	dispatcher := chain.NewDispatcher(unions, plugins, append(opts, a.config.Dispatch...)...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.writePump(gctx)
	})
	g.Go(func() error {
		return a.readPump(context.WithoutCancel(ctx), dispatcher)
	})
	err := g.Wait()

	a.logger.Info("[ws] 收发已停止", zap.Stringer("status", a.Status()))
	return err
}

// Close 主动关闭适配器，等待中的调用收到 ErrTransport
func (a *Adapter) Close() error {
	before := a.status.load()
	a.terminate(ErrClosed)
	a.closeConn()
	// 没有运行过的适配器由这里回收事件总线
	if before.State == StateNotConnected {
		a.events.Close()
	}
	return nil
}

// terminate 进入 Disconnected，只有第一个原因生效
func (a *Adapter) terminate(reason error) bool {
	if !a.status.disconnect(reason) {
		return false
	}
	a.metrics.SetConnected(false)
	a.events.Publish(Event{Type: EventDisconnected, Data: reason})
	a.logger.Warn("[ws] 连接已断开", zap.Error(reason))
	return true
}

func (a *Adapter) closeConn() {
	a.closeOnce.Do(func() {
		_ = a.conn.Close()
	})
}

func outcomeOf(resp *onebot.Response, err error) string {
	switch {
	case err == nil && resp.Failed():
		return OutcomeFailed
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errors.ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, errors.ErrStatus):
		return OutcomeStatus
	}
	return OutcomeError
}
