package job

import "github.com/tokmz/qibot/pkg/errors"

// 3400 段错误码，调度相关
var (
	ErrJobNotFound    = errors.New(3401, "job: not found", nil)
	ErrInvalidJob     = errors.New(3402, "job: invalid job", nil)
	ErrInvalidSpec    = errors.New(3403, "job: invalid schedule", nil)
	ErrAlreadyStarted = errors.New(3404, "job: scheduler already started", nil)
	ErrJobTimeout     = errors.New(3405, "job: execution timeout", nil)
	ErrJobPanic       = errors.New(3406, "job: handler panic", nil)
)
