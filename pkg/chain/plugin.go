package chain

import (
	"context"
	"sort"
	"sync/atomic"
)

// Handler 事件处理器
// 返回 true 表示事件已处理，停止后续匹配；false 或 error 继续尝试下一个
type Handler func(ctx context.Context, c *Context) (bool, error)

// MatchUnion {描述, 优先级, Matcher, Handler}，构建后不可变
type MatchUnion struct {
	description string
	priority    int
	matcher     *Matcher
	handler     Handler
	plugin      string
}

// NewMatchUnion 创建 MatchUnion
func NewMatchUnion(description string, priority int, matcher *Matcher, handler Handler) *MatchUnion {
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &MatchUnion{
		description: description,
		priority:    priority,
		matcher:     matcher,
		handler:     handler,
	}
}

// Description 描述
func (u *MatchUnion) Description() string { return u.description }

// Priority 优先级，越大越先执行
func (u *MatchUnion) Priority() int { return u.priority }

// Matcher 匹配条件
func (u *MatchUnion) Matcher() *Matcher { return u.matcher }

// Plugin 所属插件名称，直接注册的为空
func (u *MatchUnion) Plugin() string { return u.plugin }

// Handle 调用处理器
func (u *MatchUnion) Handle(ctx context.Context, c *Context) (bool, error) {
	return u.handler(ctx, c)
}

// Plugin 插件：命名、可描述的 MatchUnion 集合
type Plugin struct {
	name        string
	description string
	unions      []*MatchUnion
	frozen      atomic.Bool
}

// NewPlugin 创建插件
func NewPlugin(name, description string) *Plugin {
	return &Plugin{name: name, description: description}
}

// Name 插件名称
func (p *Plugin) Name() string { return p.name }

// Description 插件描述
func (p *Plugin) Description() string { return p.description }

// On 追加一个 MatchUnion，插件内按注册顺序排列
// 插件交给 Bot 后被冻结，此时再调用会 panic
func (p *Plugin) On(description string, priority int, matcher *Matcher, handler Handler) *Plugin {
	if p.frozen.Load() {
		panic("chain: plugin " + p.name + " is frozen")
	}
	u := NewMatchUnion(description, priority, matcher, handler)
	u.plugin = p.name
	p.unions = append(p.unions, u)
	return p
}

// Unions 返回 MatchUnion 列表副本
func (p *Plugin) Unions() []*MatchUnion {
	return append([]*MatchUnion(nil), p.unions...)
}

// Freeze 冻结插件
func (p *Plugin) Freeze() {
	p.frozen.Store(true)
}

// Flatten 冻结插件，按插件注册顺序展开后以优先级降序稳定排序
// 同优先级保持注册顺序
func Flatten(plugins ...*Plugin) []*MatchUnion {
	var unions []*MatchUnion
	for _, p := range plugins {
		p.Freeze()
		unions = append(unions, p.unions...)
	}
	sort.SliceStable(unions, func(i, j int) bool {
		return unions[i].priority > unions[j].priority
	})
	return unions
}
