package ws

import (
	"github.com/tokmz/qibot/pkg/errors"
)

// 错误定义
var (
	// ErrNotConnected 适配器尚未运行或已断开
	ErrNotConnected = errors.ErrStatus.WithMessage("ws: not connected")
	// ErrAlreadyRunning Run 只能调用一次
	ErrAlreadyRunning = errors.ErrStatus.WithMessage("ws: adapter already running")
	// ErrClosed 适配器被主动关闭
	ErrClosed = errors.ErrTransport.WithMessage("ws: adapter closed")
	// ErrConnectionClosed 等待响应时连接终止
	ErrConnectionClosed = errors.ErrTransport.WithMessage("ws: connection closed")
)

func invalidConfig(msg string) error {
	return errors.ErrInvalidConfig.WithMessage("ws: " + msg)
}

// transportError 包装读写错误
func transportError(op string, err error) error {
	return errors.ErrTransport.WithMessage("ws: " + op + " failed").WithError(err)
}
