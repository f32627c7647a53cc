package qibot

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/ws"
)

var (
	// ErrAlreadyRunning Run 只能调用一次
	ErrAlreadyRunning = errors.ErrStatus.WithMessage("bot: already running")
	// ErrFrozen 处理器顺序已确定，不能再注册插件
	ErrFrozen = errors.ErrStatus.WithMessage("bot: plugins are frozen")
)

// Service 与适配器一同运行的组件，ctx 取消后应当返回
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

var _ caller.Caller = (*Bot)(nil)

// Bot 组合根：收集插件，排好处理器顺序后启动适配器和附属服务
type Bot struct {
	config *Config
	logger logger.Logger

	mu       sync.RWMutex
	plugins  []*chain.Plugin
	services []Service
	adapter  *ws.Adapter

	sortOnce sync.Once
	unions   []*chain.MatchUnion
	frozen   atomic.Bool
	running  atomic.Bool

	loginInfo atomic.Pointer[onebot.GetLoginInfoResult]
}

// New 创建一个新的 Bot 实例，使用 Options 模式配置
func New(opts ...Option) *Bot {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Bot{
		config: config,
		logger: config.Logger,
	}
}

// Register 注册插件，插件随即被冻结
// 处理器顺序确定后（Unions 或 Run 之后）返回 ErrFrozen
func (b *Bot) Register(plugins ...*chain.Plugin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen.Load() {
		return ErrFrozen
	}
	for _, p := range plugins {
		p.Freeze()
		b.plugins = append(b.plugins, p)
	}
	return nil
}

// Attach 添加与适配器一同运行的服务
func (b *Bot) Attach(services ...Service) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services = append(b.services, services...)
}

// Plugins 已注册的插件
func (b *Bot) Plugins() []*chain.Plugin {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*chain.Plugin(nil), b.plugins...)
}

// Unions 全局处理器列表，按优先级降序，同优先级保持注册顺序
// 第一次调用时计算，之后不再变化
func (b *Bot) Unions() []*chain.MatchUnion {
	b.sortOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.frozen.Store(true)
		b.unions = chain.Flatten(b.plugins...)
	})
	return b.unions
}

// Status 连接状态，尚未连接时为 NotConnected
func (b *Bot) Status() ws.Status {
	if a := b.currentAdapter(); a != nil {
		return a.Status()
	}
	return ws.Status{State: ws.StateNotConnected}
}

// LoginInfo 连接后获取的登录账号，未获取到时为 nil
func (b *Bot) LoginInfo() *onebot.GetLoginInfoResult {
	return b.loginInfo.Load()
}

// Call 通过当前连接发起调用，供定时任务等插件之外的组件使用
func (b *Bot) Call(ctx context.Context, req onebot.Request) (*onebot.Response, error) {
	a := b.currentAdapter()
	if a == nil {
		return nil, ws.ErrNotConnected
	}
	return a.Call(ctx, req)
}

func (b *Bot) currentAdapter() *ws.Adapter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.adapter
}

// Run 连接 OneBot 实现并阻塞到退出
// 收到退出信号或 ctx 取消时返回 nil，连接异常断开时返回断开原因
// 连接建立后 Bot 只能运行一次，拨号失败时可以再次调用
func (b *Bot) Run(ctx context.Context) error {
	if err := b.config.Validate(); err != nil {
		return err
	}
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if b.config.HandleSignals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}

	unions := b.Unions()
	plugins := b.Plugins()
	if b.config.Banner {
		b.printBanner(b.config.Output, unions)
	}

	adapter, err := ws.Dial(ctx, b.config.URL, b.config.wsOptions()...)
	if err != nil {
		// 未连上可以重新 Run
		b.running.Store(false)
		return err
	}
	b.mu.Lock()
	b.adapter = adapter
	services := append([]Service(nil), b.services...)
	b.mu.Unlock()

	adapter.Events().Subscribe(ws.EventConnected, func(ws.Event) {
		b.fetchLoginInfo(ctx, adapter)
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		// 连接结束时带停所有服务
		defer cancel()
		return adapter.Run(gctx, unions, plugins)
	})
	for _, svc := range services {
		g.Go(func() error {
			b.logger.Info("[bot] 启动服务", zap.String("service", svc.Name()))
			if err := svc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("service %s: %w", svc.Name(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		b.logger.Info("[bot] 正在关闭...")
		if b.config.Shutdown.BeforeShutdown != nil {
			b.config.Shutdown.BeforeShutdown()
		}
		return nil
	})

	err = g.Wait()

	if b.config.Shutdown.AfterShutdown != nil {
		b.config.Shutdown.AfterShutdown()
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		b.logger.Info("[bot] 已退出")
		return nil
	}
	if err != nil {
		b.logger.Error("[bot] 异常退出", zap.Error(err))
	}
	return err
}

// fetchLoginInfo 连接建立后获取登录账号
func (b *Bot) fetchLoginInfo(ctx context.Context, c caller.Caller) {
	info, err := caller.New(c).GetLoginInfo(ctx)
	if err != nil {
		b.logger.Warn("[bot] 获取登录信息失败", zap.Error(err))
		return
	}
	b.loginInfo.Store(info)
	b.logger.Info("[bot] 已登录", zap.Int64("user_id", info.UserID), zap.String("nickname", info.Nickname))
}
