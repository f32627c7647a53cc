package request

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tokmz/qibot/request"

// Client 插件使用的 HTTP 客户端，可并发使用
type Client struct {
	config *Config
	http   *http.Client
}

// New 创建 HTTP 客户端
func New(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig 使用配置创建 HTTP 客户端
func NewWithConfig(cfg *Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

// Get 创建 GET 请求，path 为绝对 URL 或相对 BaseURL 的路径
func (c *Client) Get(ctx context.Context, path string) *Request {
	return &Request{
		ctx:    ctx,
		client: c,
		path:   path,
		header: make(http.Header),
		query:  make(url.Values),
	}
}

// retryable 网络错误和 5xx
type retryable struct{ err error }

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

func (c *Client) execute(r *Request) (*Response, error) {
	rc := c.config.Retry
	if rc == nil {
		resp, err := c.once(r)
		var re *retryable
		if stderrors.As(err, &re) {
			if resp != nil {
				return resp, nil
			}
			err = re.err
		}
		return resp, err
	}

	policy := backoff.NewExponentialBackOff()
	if rc.InitialDelay > 0 {
		policy.InitialInterval = rc.InitialDelay
	}
	if rc.MaxDelay > 0 {
		policy.MaxInterval = rc.MaxDelay
	}

	resp, err := backoff.Retry(r.ctx, func() (*Response, error) {
		resp, err := c.once(r)
		var re *retryable
		if err != nil && !stderrors.As(err, &re) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(rc.MaxAttempts+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.config.Logger.DebugContext(r.ctx, "[request] retrying", zap.Duration("wait", wait), zap.Error(err))
		}),
	)

	var re *retryable
	switch {
	case err == nil:
		return resp, nil
	case r.ctx.Err() != nil:
		return nil, ErrTimeout.WithError(err)
	case stderrors.As(err, &re):
		return nil, ErrMaxRetry.WithError(re.err)
	default:
		return nil, err
	}
}

// once 单次请求，可重试的失败包装为 *retryable
func (c *Client) once(r *Request) (resp *Response, err error) {
	target, err := r.url()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, ErrInvalidURL.WithError(err)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k := range r.header {
		req.Header.Set(k, r.header.Get(k))
	}

	if c.config.Tracing {
		ctx, span := otel.Tracer(tracerName).Start(req.Context(), "HTTP GET",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", http.MethodGet),
				attribute.String("url.full", target),
			),
		)
		defer func() {
			if resp != nil {
				span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
		req = req.WithContext(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.log(req, 0, start, err)
		var netErr net.Error
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) ||
			(stderrors.As(err, &netErr) && netErr.Timeout()) {
			return nil, ErrTimeout.WithError(err)
		}
		return nil, &retryable{ErrRequestFailed.WithError(err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.config.MaxBodySize+1))
	if err != nil {
		c.log(req, httpResp.StatusCode, start, err)
		return nil, &retryable{ErrRequestFailed.WithError(err)}
	}
	if int64(len(body)) > c.config.MaxBodySize {
		return nil, ErrRequestFailed.WithMessage("响应体超过上限")
	}
	c.log(req, httpResp.StatusCode, start, nil)

	resp = &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body, URL: target}
	if httpResp.Request != nil {
		resp.URL = httpResp.Request.URL.String()
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &retryable{resp.err()}
	}
	return resp, nil
}

func (c *Client) log(req *http.Request, status int, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("url", req.URL.String()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		c.config.Logger.WarnContext(req.Context(), "[request] failed", append(fields, zap.Error(err))...)
		return
	}
	c.config.Logger.DebugContext(req.Context(), "[request] done", fields...)
}
