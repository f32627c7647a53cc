// Package echo 回显 #echo 之后的文本。
package echo

import (
	"context"

	"github.com/tokmz/qibot/pkg/chain"
)

// Name 插件名
const Name = "echo"

const command = "#echo"

// New 创建插件
func New() *chain.Plugin {
	return chain.NewPlugin(Name, "回显用户输入的文本").
		On("原样输出 #echo 后的内容", 0, chain.NewMatcher(chain.OnMessage(), chain.OnPrefix(command)), handle)
}

func handle(ctx context.Context, c *chain.Context) (bool, error) {
	text := c.Args(command)
	if text == "" {
		return true, nil
	}
	_, err := c.Send(ctx, text)
	return true, err
}
