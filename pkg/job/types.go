package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// MaxJobNameLength 任务名最大长度
const MaxJobNameLength = 128

// JobType 任务类型
type JobType string

const (
	JobTypeCron     JobType = "cron"     // Cron 表达式调度
	JobTypeOnce     JobType = "once"     // 一次性任务
	JobTypeInterval JobType = "interval" // 间隔任务
)

// RunStatus 执行记录状态
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusSkipped RunStatus = "skipped" // 上一次仍在执行或并发已满
)

// Handler 任务处理函数
type Handler func(ctx context.Context) error

// Job 任务定义
type Job struct {
	ID          string
	Name        string
	Description string
	Type        JobType
	// Cron 5 段表达式，可选秒字段，也支持 @daily 等描述符
	Cron     string
	Interval time.Duration
	// At 一次性任务执行时间，零值表示立即执行
	At time.Time

	Handler Handler
	// Timeout 为 0 时使用调度器默认超时
	Timeout  time.Duration
	MaxRetry int
}

// Run 执行记录
type Run struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	JobID     string    `gorm:"index;size:64" json:"job_id"`
	JobName   string    `gorm:"size:128" json:"job_name"`
	Status    RunStatus `gorm:"size:16" json:"status"`
	Attempts  int       `json:"attempts"`
	StartAt   time.Time `gorm:"index" json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Duration  int64     `json:"duration"` // 毫秒
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	TraceID   string    `gorm:"size:64" json:"trace_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// JobInfo 任务的只读视图
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        JobType   `json:"type"`
	Spec        string    `json:"spec"`
	NextRunAt   time.Time `json:"next_run_at,omitzero"`
	PrevRunAt   time.Time `json:"prev_run_at,omitzero"`
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// schedule 根据任务类型生成 cron 调度
func (j *Job) schedule(now time.Time) (cron.Schedule, error) {
	switch j.Type {
	case JobTypeCron:
		s, err := parser.Parse(j.Cron)
		if err != nil {
			return nil, ErrInvalidSpec.WithMessage("job: invalid cron expression " + j.Cron).WithError(err)
		}
		return s, nil
	case JobTypeInterval:
		return cron.Every(j.Interval), nil
	case JobTypeOnce:
		at := j.At
		if at.IsZero() || at.Before(now) {
			at = now
		}
		return &onceSchedule{at: at}, nil
	default:
		return nil, ErrInvalidSpec.WithMessage("job: unknown job type " + string(j.Type))
	}
}

// spec 用于展示的调度描述
func (j *Job) spec() string {
	switch j.Type {
	case JobTypeCron:
		return j.Cron
	case JobTypeInterval:
		return "@every " + j.Interval.String()
	default:
		return "@once " + j.At.Format(time.RFC3339)
	}
}

// Validate 验证任务参数
func (j *Job) Validate() error {
	if j.Name == "" || len(j.Name) > MaxJobNameLength {
		return ErrInvalidJob.WithMessage("job: name is required (max 128)")
	}
	if j.Handler == nil {
		return ErrInvalidJob.WithMessage("job: handler is required")
	}
	if j.Type == JobTypeInterval && j.Interval <= 0 {
		return ErrInvalidSpec.WithMessage("job: interval is required for interval job")
	}
	if j.MaxRetry < 0 {
		return ErrInvalidJob.WithMessage("job: max retry cannot be negative")
	}
	return nil
}

// onceSchedule 只触发一次
// cron 在入队时和每次触发后各调用一次 Next，第二次返回零值使其不再调度
type onceSchedule struct {
	at     time.Time
	handed bool
}

func (o *onceSchedule) Next(time.Time) time.Time {
	if o.handed {
		return time.Time{}
	}
	o.handed = true
	return o.at
}
