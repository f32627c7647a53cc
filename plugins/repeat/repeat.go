// Package repeat 群内连续多人发送相同消息时复读一次。
package repeat

import (
	"context"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/onebot"
)

// Name 插件名
const Name = "repeat"

// Threshold 触发复读的不同发送人数，必须大于 1
const Threshold = 2

// stateTTL 群内长时间没有消息时状态过期
const stateTTL = 6 * time.Hour

// state 单个群的复读状态
type state struct {
	// Message 最近一条消息，nil 表示含有不可复读的段
	Message  *onebot.Message `json:"message,omitempty"`
	Users    []int64         `json:"users"`
	Repeated bool            `json:"repeated"`
}

// Repeater 复读状态保存在缓存中，使用 Redis 时多实例共享
type Repeater struct {
	mu    sync.Mutex
	store cache.Cache
}

// NewRepeater 创建复读器
func NewRepeater(store cache.Cache) *Repeater {
	return &Repeater{store: store}
}

// New 创建插件，优先级最低，总是返回 false 让其它处理器先行
func New(store cache.Cache) *chain.Plugin {
	r := NewRepeater(store)
	return chain.NewPlugin(Name, "连续相同消息达到 "+strconv.Itoa(Threshold)+" 人时自动复读").
		On("检测是否满足连续 "+strconv.Itoa(Threshold)+" 条消息", math.MinInt32, chain.NewMatcher(chain.OnGroupMessage()), r.Handle)
}

// Handle 处理群消息
func (r *Repeater) Handle(ctx context.Context, c *chain.Context) (bool, error) {
	ev, ok := c.Event.(*onebot.GroupMessage)
	if !ok {
		return false, nil
	}
	msg, err := r.Observe(ctx, ev.GroupID, ev.UserID, ev.Message)
	if err != nil || msg == nil {
		return false, err
	}
	_, err = c.SendMessage(ctx, *msg)
	return false, err
}

// Observe 记录一条群消息，需要复读时返回要发送的消息
func (r *Repeater) Observe(ctx context.Context, groupID, userID int64, message onebot.Message) (*onebot.Message, error) {
	msg := repeatable(message)
	key := "repeat:" + strconv.FormatInt(groupID, 10)

	r.mu.Lock()
	defer r.mu.Unlock()

	var st state
	err := r.store.Get(ctx, key, &st)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return nil, err
	}

	var out *onebot.Message
	switch {
	case err != nil || !same(st.Message, msg):
		st = state{Message: msg, Users: []int64{userID}}
	case !st.Repeated:
		if !slices.Contains(st.Users, userID) {
			st.Users = append(st.Users, userID)
		}
		if len(st.Users) >= Threshold {
			out = st.Message
			st.Users = nil
			st.Repeated = true
		}
	}

	if err := r.store.Set(ctx, key, st, stateTTL); err != nil {
		return nil, err
	}
	return out, nil
}

// repeatable 只有纯文本和表情组成的消息可以复读
func repeatable(m onebot.Message) *onebot.Message {
	if !m.OnlyOf(onebot.SegmentText, onebot.SegmentFace) {
		return nil
	}
	return &m
}

func same(a, b *onebot.Message) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
