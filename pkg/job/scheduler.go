package job

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/errors"
)

const tracerName = "github.com/tokmz/qibot/job"

// entry 已注册的任务
type entry struct {
	job     *Job
	cronID  cron.EntryID
	running atomic.Bool
}

// Scheduler 进程内定时任务调度器
// 作为后台服务随机器人启动，ctx 取消后停止调度并等待执行中的任务返回
type Scheduler struct {
	config    *Config
	cron      *cron.Cron
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu      sync.RWMutex
	jobs    map[string]*entry
	started bool
	runCtx  context.Context
}

// New 创建调度器
func New(opts ...Option) *Scheduler {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.ConcurrentRuns <= 0 {
		config.ConcurrentRuns = 5
	}
	if config.Store == nil {
		config.Store = NewMemoryStore(100)
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	return &Scheduler{
		config:    config,
		cron:      cron.New(cron.WithParser(parser), cron.WithLocation(config.Location)),
		semaphore: make(chan struct{}, config.ConcurrentRuns),
		jobs:      make(map[string]*entry),
		runCtx:    context.Background(),
	}
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "job"
}

// Add 注册任务，返回任务 ID
func (s *Scheduler) Add(j *Job) (string, error) {
	if err := j.Validate(); err != nil {
		return "", err
	}
	schedule, err := j.schedule(time.Now().In(s.config.Location))
	if err != nil {
		return "", err
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return "", ErrInvalidJob.WithMessage("job: duplicate id " + j.ID)
	}
	e := &entry{job: j}
	e.cronID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(e) }))
	s.jobs[j.ID] = e

	s.config.Logger.Debug("[job] added",
		zap.String("id", j.ID), zap.String("name", j.Name), zap.String("spec", j.spec()))
	return j.ID, nil
}

// Remove 删除任务，不影响正在执行的实例
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	e, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	s.cron.Remove(e.cronID)
	return nil
}

// Jobs 按名称列出已注册任务
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		ce := s.cron.Entry(e.cronID)
		infos = append(infos, JobInfo{
			ID:          e.job.ID,
			Name:        e.job.Name,
			Description: e.job.Description,
			Type:        e.job.Type,
			Spec:        e.job.spec(),
			NextRunAt:   ce.Next,
			PrevRunAt:   ce.Prev,
		})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, k int) bool { return infos[i].Name < infos[k].Name })
	return infos
}

// Runs 查询执行记录
func (s *Scheduler) Runs(ctx context.Context, jobID string, limit int) ([]*Run, error) {
	return s.config.Store.ListRuns(ctx, jobID, limit)
}

// Trigger 立即同步执行一次任务
func (s *Scheduler) Trigger(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return s.execute(ctx, e), nil
}

// Run 启动调度，阻塞直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.runCtx = ctx
	count := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.config.Logger.Info("[job] scheduler started", zap.Int("jobs", count))

	<-ctx.Done()

	// cron.Stop 返回的 ctx 在 cron 内部已派发的任务结束后完成
	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.mu.Lock()
	s.started = false
	s.runCtx = context.Background()
	s.mu.Unlock()

	s.config.Logger.Info("[job] scheduler stopped")
	return nil
}

// fire cron 触发回调
func (s *Scheduler) fire(e *entry) {
	s.mu.RLock()
	ctx := s.runCtx
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.execute(ctx, e)
}

// execute 执行一次任务，失败按 MaxRetry 重试，结果写入 Store
func (s *Scheduler) execute(ctx context.Context, e *entry) *Run {
	j := e.job
	run := &Run{
		ID:      uuid.NewString(),
		JobID:   j.ID,
		JobName: j.Name,
		StartAt: time.Now(),
	}
	log := s.config.Logger.With(zap.String("job", j.Name), zap.String("run", run.ID))

	// 同一任务不重叠执行
	if !e.running.CompareAndSwap(false, true) {
		log.Warn("[job] skipped, previous run still in progress")
		return s.finish(ctx, run, RunStatusSkipped, nil)
	}
	defer e.running.Store(false)

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	default:
		log.Warn("[job] skipped, concurrency limit reached")
		return s.finish(ctx, run, RunStatusSkipped, nil)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "job.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job.id", j.ID),
			attribute.String("job.name", j.Name),
			attribute.String("job.type", string(j.Type)),
		),
	)
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		run.TraceID = sc.TraceID().String()
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = s.config.JobTimeout
	}

	var err error
	for attempt := 0; attempt <= j.MaxRetry; attempt++ {
		run.Attempts = attempt + 1
		if err = s.attempt(ctx, j, timeout); err == nil {
			break
		}
		log.Warn("[job] attempt failed", zap.Int("attempt", run.Attempts), zap.Error(err))
		if attempt == j.MaxRetry {
			break
		}
		timer := time.NewTimer(s.config.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			attempt = j.MaxRetry
		case <-timer.C:
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("[job] failed", zap.Int("attempts", run.Attempts), zap.Error(err))
		return s.finish(ctx, run, RunStatusFailed, err)
	}
	span.SetStatus(codes.Ok, "")
	log.Info("[job] done", zap.Duration("duration", time.Since(run.StartAt)))
	return s.finish(ctx, run, RunStatusSuccess, nil)
}

// attempt 单次执行，超时或 panic 转为错误
func (s *Scheduler) attempt(ctx context.Context, j *Job, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = ErrJobPanic.WithError(fmt.Errorf("%v\n%s", r, debug.Stack()))
		}
	}()

	err = j.Handler(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrJobTimeout.WithError(err)
	}
	return err
}

func (s *Scheduler) finish(ctx context.Context, run *Run, status RunStatus, err error) *Run {
	run.Status = status
	run.EndAt = time.Now()
	run.Duration = run.EndAt.Sub(run.StartAt).Milliseconds()
	if err != nil {
		run.Error = err.Error()
	}
	// 关闭阶段也要落库
	if serr := s.config.Store.SaveRun(context.WithoutCancel(ctx), run); serr != nil {
		s.config.Logger.Warn("[job] save run failed", zap.String("job", run.JobName), zap.Error(serr))
	}
	return run
}
