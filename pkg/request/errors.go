package request

import "github.com/tokmz/qibot/pkg/errors"

// 4000 段，插件出站 HTTP
var (
	// ErrRequestFailed 请求失败或返回 4xx/5xx
	ErrRequestFailed = errors.New(4001, "请求失败", nil)
	// ErrTimeout 请求超时或被取消
	ErrTimeout = errors.New(4002, "请求超时", nil)
	// ErrUnmarshal 响应不是预期的 JSON
	ErrUnmarshal = errors.New(4004, "反序列化失败", nil)
	// ErrMaxRetry 重试次数已用尽
	ErrMaxRetry = errors.New(4005, "重试次数已用尽", nil)
	// ErrInvalidURL 无效的 URL
	ErrInvalidURL = errors.New(4006, "无效的URL", nil)
)
