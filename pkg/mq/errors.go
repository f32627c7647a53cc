package mq

import "github.com/tokmz/qibot/pkg/errors"

// 预定义错误
var (
	ErrConnect       = errors.New(3301, "mq: connect failed", nil)
	ErrPublish       = errors.New(3302, "mq: publish failed", nil)
	ErrMarshal       = errors.New(3303, "mq: marshal message failed", nil)
	ErrClosed        = errors.New(3304, "mq: publisher closed", nil)
	ErrInvalidConfig = errors.ErrInvalidConfig.WithMessage("mq: invalid config")
)
