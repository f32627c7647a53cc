// Package help 列出已注册的插件。
package help

import (
	"context"
	"fmt"
	"strings"

	"github.com/tokmz/qibot/pkg/chain"
)

// Name 插件名
const Name = "help"

// New 创建插件
func New() *chain.Plugin {
	return chain.NewPlugin(Name, "列出所有插件").
		On("输出插件列表", 0, chain.NewMatcher(chain.OnMessage(), chain.OnExactMatch("#help")),
			func(ctx context.Context, c *chain.Context) (bool, error) {
				_, err := c.Send(ctx, Render(c.Plugins))
				return true, err
			})
}

// Render 插件名、描述以及每个处理器的描述
func Render(plugins []*chain.Plugin) string {
	var b strings.Builder
	b.WriteString("已加载的插件：")
	for _, p := range plugins {
		fmt.Fprintf(&b, "\n\n%s：%s", p.Name(), p.Description())
		for _, u := range p.Unions() {
			fmt.Fprintf(&b, "\n  - %s", u.Description())
		}
	}
	return b.String()
}
