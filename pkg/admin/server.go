package admin

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/ws"
)

// Source 管理接口读取的机器人状态
type Source interface {
	Status() ws.Status
	LoginInfo() *onebot.GetLoginInfoResult
	Plugins() []*chain.Plugin
	Unions() []*chain.MatchUnion
}

// Config 管理服务配置
type Config struct {
	// Addr 监听地址，默认 ":8081"
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Gatherer /metrics 的数据来源，nil 时不注册 /metrics
	Gatherer prometheus.Gatherer

	Logger logger.Logger
}

// Option 配置选项函数
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Addr:            ":8081",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Logger:          logger.Nop(),
	}
}

// WithAddr 设置监听地址
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithGatherer 设置指标来源
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) {
		c.Gatherer = g
	}
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithShutdownTimeout 设置关机超时时间
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ShutdownTimeout = timeout
	}
}

// Server 管理 HTTP 服务：健康检查、状态、插件列表、指标
type Server struct {
	config *Config
	source Source
	engine *gin.Engine
}

// New 创建管理服务
func New(source Source, opts ...Option) *Server {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	// 静默 Gin 默认输出，由访问日志中间件记录
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard
	gin.DefaultErrorWriter = io.Discard

	s := &Server{
		config: config,
		source: source,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), tracingMiddleware("github.com/tokmz/qibot/admin"), accessLog(config.Logger, "/healthz", "/metrics"))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/status", s.status)
	s.engine.GET("/plugins", s.plugins)
	s.engine.GET("/unions", s.unions)
	if s.config.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler 返回 http.Handler，便于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Name 服务名称
func (s *Server) Name() string {
	return "admin"
}

// Run 启动 HTTP 服务，ctx 取消时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.ErrInvalidConfig.WithMessage("admin: listen " + s.config.Addr).WithError(err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定 listener 上提供服务
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	for _, r := range s.engine.Routes() {
		s.config.Logger.Debug("[admin] route", zap.String("method", r.Method), zap.String("path", r.Path))
	}
	s.config.Logger.Info("[admin] listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.config.Logger.Warn("[admin] 强制关闭", zap.Error(err))
		return err
	}
	return nil
}

type statusView struct {
	State     string                     `json:"state"`
	Reason    string                     `json:"reason,omitempty"`
	LoginInfo *onebot.GetLoginInfoResult `json:"login_info,omitempty"`
}

type unionView struct {
	Plugin      string `json:"plugin"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Matcher     string `json:"matcher"`
}

type pluginView struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Unions      []unionView `json:"unions"`
}

func viewOf(u *chain.MatchUnion) unionView {
	return unionView{
		Plugin:      u.Plugin(),
		Description: u.Description(),
		Priority:    u.Priority(),
		Matcher:     u.Matcher().String(),
	}
}

// healthz 已连接返回 200，否则 503
func (s *Server) healthz(c *gin.Context) {
	st := s.source.Status()
	if st.State != ws.StateConnected {
		write(c, http.StatusServiceUnavailable, Fail(http.StatusServiceUnavailable, st.String()))
		return
	}
	write(c, http.StatusOK, Success(gin.H{"state": st.State.String()}))
}

func (s *Server) status(c *gin.Context) {
	st := s.source.Status()
	view := statusView{
		State:     st.State.String(),
		LoginInfo: s.source.LoginInfo(),
	}
	if st.Reason != nil {
		view.Reason = st.Reason.Error()
	}
	write(c, http.StatusOK, Success(view))
}

func (s *Server) plugins(c *gin.Context) {
	plugins := s.source.Plugins()
	views := make([]pluginView, 0, len(plugins))
	for _, p := range plugins {
		v := pluginView{Name: p.Name(), Description: p.Description()}
		for _, u := range p.Unions() {
			v.Unions = append(v.Unions, viewOf(u))
		}
		views = append(views, v)
	}
	write(c, http.StatusOK, ListData(views))
}

// unions 按执行顺序列出处理器
func (s *Server) unions(c *gin.Context) {
	unions := s.source.Unions()
	views := make([]unionView, 0, len(unions))
	for _, u := range unions {
		views = append(views, viewOf(u))
	}
	write(c, http.StatusOK, ListData(views))
}
