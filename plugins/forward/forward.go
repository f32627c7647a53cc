// Package forward 把收到的消息事件发布到消息队列，供下游消费。
package forward

import (
	"context"
	"math"
	"strconv"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/mq"
	"github.com/tokmz/qibot/pkg/onebot"
)

// Name 插件名
const Name = "forward"

// Key 分区键：群消息按群，私聊按用户
func Key(ev onebot.Event) string {
	if gid, ok := onebot.GroupIDOf(ev); ok {
		return "group." + strconv.FormatInt(gid, 10)
	}
	uid, _ := onebot.UserIDOf(ev)
	return "private." + strconv.FormatInt(uid, 10)
}

// New 创建插件，优先级最高且总是返回 false，不影响后续处理器
func New(p mq.Publisher) *chain.Plugin {
	return chain.NewPlugin(Name, "转发消息事件到消息队列").
		On("发布消息事件", math.MaxInt32, chain.NewMatcher(chain.OnMessage()),
			func(ctx context.Context, c *chain.Context) (bool, error) {
				return false, p.Publish(ctx, Key(c.Event), c.Event)
			})
}
