package request

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Request GET 请求构建器
type Request struct {
	ctx    context.Context
	client *Client
	path   string
	header http.Header
	query  url.Values
}

// Header 设置请求头，覆盖客户端默认值
func (r *Request) Header(k, v string) *Request {
	r.header.Set(k, v)
	return r
}

// Query 追加查询参数
func (r *Request) Query(k, v string) *Request {
	r.query.Add(k, v)
	return r
}

// Send 执行请求，4xx/5xx 也返回响应
func (r *Request) Send() (*Response, error) {
	return r.client.execute(r)
}

// url 相对路径拼接 BaseURL
func (r *Request) url() (string, error) {
	raw := r.path
	if base := r.client.config.BaseURL; base != "" && !strings.Contains(raw, "://") {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidURL.WithMessage("无效的URL: " + raw).WithError(err)
	}
	if len(r.query) > 0 {
		q := u.Query()
		for k, vs := range r.query {
			q[k] = append(q[k], vs...)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Response 已读完响应体的 HTTP 响应
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL 跟随重定向后的最终地址
	URL string
}

// OK 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

const maxErrorBody = 256

// err 非 2xx 时的错误，响应体截断附在消息中
func (r *Response) err() error {
	if r.OK() {
		return nil
	}
	body := r.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return ErrRequestFailed.WithMessage("HTTP " + strconv.Itoa(r.StatusCode) + ": " + string(body))
}

// JSON 发送请求并把 2xx 响应体解析为 T
func JSON[T any](req *Request) (T, error) {
	var v T
	resp, err := req.Send()
	if err != nil {
		return v, err
	}
	if err := resp.err(); err != nil {
		return v, err
	}
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return v, ErrUnmarshal.WithError(err)
	}
	return v, nil
}

// Bytes 发送请求并返回 2xx 响应体
func Bytes(req *Request) ([]byte, error) {
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
