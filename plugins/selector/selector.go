// Package selector 从 #select a/b/c 的候选项中随机选一个。
package selector

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/tokmz/qibot/pkg/chain"
)

// Name 插件名
const Name = "select"

const command = "#select"

// New 创建插件，pick 为 nil 时使用 rand.IntN
func New(pick func(n int) int) *chain.Plugin {
	if pick == nil {
		pick = rand.IntN
	}
	return chain.NewPlugin(Name, "解决选择困难症").
		On("随机选择", 0, chain.NewMatcher(chain.OnMessage(), chain.OnPrefix(command)),
			func(ctx context.Context, c *chain.Context) (bool, error) {
				choices := Choices(c.Args(command))
				if len(choices) == 0 {
					return true, nil
				}
				_, err := c.Reply(ctx, choices[pick(len(choices))])
				return true, err
			})
}

// Choices 按 / 切分并去掉空白项
func Choices(text string) []string {
	var choices []string
	for _, s := range strings.Split(text, "/") {
		if s = strings.TrimSpace(s); s != "" {
			choices = append(choices, s)
		}
	}
	return choices
}
