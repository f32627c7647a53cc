package config

import "github.com/tokmz/qibot/pkg/errors"

// 配置包专用错误定义
var (
	// ErrConfigNotFound 配置文件未找到
	ErrConfigNotFound = errors.New(3001, "配置文件未找到", nil)
	// ErrConfigReadFailed 配置读取失败
	ErrConfigReadFailed = errors.New(3002, "配置读取失败", nil)
)

func invalid(msg string) error {
	return errors.ErrInvalidConfig.WithMessage("config: " + msg)
}
