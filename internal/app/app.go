// Package app 按配置组装机器人：日志、追踪、指标、缓存、数据库、定时任务、消息队列和内置插件。
package app

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tokmz/qibot"
	"github.com/tokmz/qibot/pkg/admin"
	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/config"
	"github.com/tokmz/qibot/pkg/job"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/mq"
	"github.com/tokmz/qibot/pkg/orm"
	"github.com/tokmz/qibot/pkg/tracing"
	"github.com/tokmz/qibot/pkg/ws"
)

// App 组装好的机器人及其依赖
type App struct {
	Settings  *config.Settings
	Logger    logger.Logger
	Bot       *qibot.Bot
	Scheduler *job.Scheduler
	Cache     cache.Cache
	DB        *gorm.DB
	Publisher mq.Publisher
	Registry  *prometheus.Registry

	closers []func() error
}

// New 按配置组装，失败时释放已创建的资源
func New(s *config.Settings, opts ...Option) (_ *App, err error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Settings: s}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	wsOpts := wsOptions(s.WS)
	var hooks []logger.Hook
	if s.Admin.Enabled && s.Admin.Metrics {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := ws.NewPrometheusMetrics(a.Registry, s.Admin.Namespace)
		if err != nil {
			return nil, err
		}
		wsOpts = append(wsOpts, ws.WithMetrics(metrics))
		hook, err := logEntries(a.Registry, s.Admin.Namespace)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, hook)
	}

	if o.logger != nil {
		a.Logger = o.logger
	} else if a.Logger, err = NewLogger(s.Log, hooks...); err != nil {
		return nil, err
	}
	a.onClose(func() error {
		_ = a.Logger.Sync()
		return nil
	})

	if s.Tracing.Enabled {
		if _, err = tracing.NewTracerProvider(tracingConfig(s.Tracing)); err != nil {
			return nil, err
		}
		a.onClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tracing.Shutdown(ctx)
		})
	}

	a.Bot = qibot.New(
		qibot.WithURL(s.Bot.URL),
		qibot.WithAccessToken(s.Bot.AccessToken),
		qibot.WithLogger(a.Logger),
		qibot.WithBanner(s.Bot.Banner),
		qibot.WithOutput(o.output),
		qibot.WithSignals(s.Bot.HandleSignals),
		qibot.WithWSOptions(wsOpts...),
		qibot.WithBeforeShutdown(func() { a.Logger.Info("[app] shutting down") }),
	)

	if a.Cache, err = cache.New(cacheConfig(s.Cache, s.Tracing.Enabled)); err != nil {
		return nil, err
	}
	a.onClose(a.Cache.Close)

	if a.DB, err = orm.New(ormConfig(s.Database, s.Tracing.Enabled), a.Logger); err != nil {
		return nil, err
	}
	a.onClose(func() error { return orm.Close(a.DB) })

	store, err := job.NewGormStore(a.DB)
	if err != nil {
		return nil, err
	}
	a.Scheduler = job.New(job.WithLogger(a.Logger), job.WithStore(store))
	a.Bot.Attach(a.Scheduler)

	if s.MQ.Driver != "" {
		if a.Publisher, err = mq.NewWithConfig(mqConfig(s.MQ, a.Logger, s.Tracing.Enabled)); err != nil {
			return nil, err
		}
		a.onClose(a.Publisher.Close)
	}

	plugins, err := a.plugins(o)
	if err != nil {
		return nil, err
	}
	if err = a.Bot.Register(plugins...); err != nil {
		return nil, err
	}

	if s.Admin.Enabled {
		adminOpts := []admin.Option{admin.WithAddr(s.Admin.Addr), admin.WithLogger(a.Logger)}
		if a.Registry != nil {
			adminOpts = append(adminOpts, admin.WithGatherer(a.Registry))
		}
		a.Bot.Attach(admin.New(a.Bot, adminOpts...))
	}
	return a, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run 运行机器人，返回后释放资源
func (a *App) Run(ctx context.Context) error {
	err := a.Bot.Run(ctx)
	if cerr := a.Close(); cerr != nil {
		a.Logger.Warn("[app] close failed", zap.Error(cerr))
	}
	return err
}

// Close 逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}

// Reload 配置热更新，目前只应用日志级别
func (a *App) Reload(s *config.Settings) {
	level := logger.ParseLevel(s.Log.Level)
	if level == a.Logger.Level() {
		return
	}
	a.Logger.SetLevel(level)
	a.Logger.Info("[app] log level changed", zap.String("level", level.String()))
}
