// Package bonus 每日签到积分，积分保存在数据库中。
package bonus

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/onebot"
)

// Name 插件名
const Name = "bonus"

// ErrStore 读写积分失败
var ErrStore = errors.New(5101, "bonus: store failed", nil)

const timeLayout = "2006-01-02 15:04:05"

// Point 用户积分
type Point struct {
	UserID     int64  `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"size:64"`
	Points     int64  `gorm:"index"`
	LastUpdate time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Option 配置选项函数
type Option func(*Service)

// WithRange 单次签到积分范围 [min, max]
func WithRange(min, max int) Option {
	return func(s *Service) {
		if min > 0 && max >= min {
			s.min, s.max = min, max
		}
	}
}

// WithClock 设置时钟，按其时区判断是否同一天
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRand 设置随机数来源，返回 [0, n)
func WithRand(fn func(n int) int) Option {
	return func(s *Service) {
		s.rand = fn
	}
}

// Service 签到逻辑
type Service struct {
	db       *gorm.DB
	min, max int
	now      func() time.Time
	rand     func(n int) int

	// 签到是读改写，单进程内串行
	mu sync.Mutex
}

// NewService 创建服务并迁移表结构
func NewService(db *gorm.DB, opts ...Option) (*Service, error) {
	s := &Service{db: db, min: 1, max: 100, now: time.Now, rand: rand.IntN}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.AutoMigrate(&Point{}); err != nil {
		return nil, ErrStore.WithError(err)
	}
	return s, nil
}

// CheckIn 签到，今天已签到时 got 为 0
func (s *Service) CheckIn(ctx context.Context, userID int64, name string) (got int64, point *Point, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		point = &Point{}
		res := tx.Where("user_id = ?", userID).Limit(1).Find(point)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 && sameDay(point.LastUpdate, now) {
			return nil
		}
		point.UserID = userID
		got = int64(s.min + s.rand(s.max-s.min+1))
		point.Points += got
		point.Name = name
		point.LastUpdate = now
		return tx.Save(point).Error
	})
	if err != nil {
		return 0, nil, ErrStore.WithError(err)
	}
	return got, point, nil
}

// Query 查询积分，从未签到时返回 nil
func (s *Service) Query(ctx context.Context, userID int64) (*Point, error) {
	var points []Point
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&points).Error; err != nil {
		return nil, ErrStore.WithError(err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	p := &points[0]
	p.LastUpdate = p.LastUpdate.In(s.now().Location())
	return p, nil
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// New 创建插件
func New(s *Service) *chain.Plugin {
	return chain.NewPlugin(Name, "每日签到获取积分").
		On("每日签到", 0, chain.NewMatcher(chain.OnMessage(), chain.OnExactMatch("#bonus")), s.handleCheckIn).
		On("查询个人签到分数", 0, chain.NewMatcher(chain.OnMessage(), chain.OnExactMatch("#my_bonus")), s.handleQuery)
}

func (s *Service) handleCheckIn(ctx context.Context, c *chain.Context) (bool, error) {
	userID, _ := onebot.UserIDOf(c.Event)
	got, point, err := s.CheckIn(ctx, userID, onebot.NicknameOf(c.Event))
	if err != nil {
		return false, err
	}

	text := "今天已经签到过了，请明天再来～"
	if got > 0 {
		text = fmt.Sprintf("本次签到积分：%d\n当前总积分：%d\n最后签到时间：%s",
			got, point.Points, point.LastUpdate.Format(timeLayout))
	}
	_, err = c.Reply(ctx, text)
	return true, err
}

func (s *Service) handleQuery(ctx context.Context, c *chain.Context) (bool, error) {
	userID, _ := onebot.UserIDOf(c.Event)
	point, err := s.Query(ctx, userID)
	if err != nil {
		return false, err
	}

	text := "你还没有签到过哦，发送 #bonus 进行第一次签到吧！"
	if point != nil {
		text = fmt.Sprintf("当前总积分：%d\n最后签到时间：%s", point.Points, point.LastUpdate.Format(timeLayout))
	}
	_, err = c.Reply(ctx, text)
	return true, err
}
