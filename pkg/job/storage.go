package job

import (
	"context"
	"slices"
	"sync"

	"gorm.io/gorm"
)

// RunStore 执行记录存储
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	// ListRuns 按开始时间倒序，jobID 为空时返回全部任务的记录
	ListRuns(ctx context.Context, jobID string, limit int) ([]*Run, error)
}

// DefaultRunLimit ListRuns 未指定 limit 时的条数
const DefaultRunLimit = 10

// MemoryStore 内存存储，每个任务保留最近 capacity 条
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	runs     map[string][]*Run
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryStore{capacity: capacity, runs: make(map[string][]*Run)}
}

func (m *MemoryStore) SaveRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := append(m.runs[run.JobID], run)
	if len(runs) > m.capacity {
		runs = runs[len(runs)-m.capacity:]
	}
	m.runs[run.JobID] = runs
	return nil
}

func (m *MemoryStore) ListRuns(_ context.Context, jobID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []*Run
	if jobID != "" {
		all = slices.Clone(m.runs[jobID])
	} else {
		for _, runs := range m.runs {
			all = append(all, runs...)
		}
	}
	slices.SortStableFunc(all, func(a, b *Run) int {
		return b.StartAt.Compare(a.StartAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GormStore 持久化执行记录
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GORM 存储并迁移表结构
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) SaveRun(ctx context.Context, run *Run) error {
	return g.db.WithContext(ctx).Create(run).Error
}

func (g *GormStore) ListRuns(ctx context.Context, jobID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	q := g.db.WithContext(ctx).Order("start_at DESC").Limit(limit)
	if jobID != "" {
		q = q.Where("job_id = ?", jobID)
	}
	var runs []*Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
