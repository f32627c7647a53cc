// Package wte 今天吃什么：从图片目录中随机挑一道菜。
package wte

import (
	"context"
	"encoding/base64"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
)

// Name 插件名
const Name = "wte"

// ErrNoFood 目录中没有图片
var ErrNoFood = errors.New(5001, "wte: no food in directory", nil)

// failedText 出错时的回复
const failedText = "出错啦，请稍后再试"

// Food 一道菜
type Food struct {
	Name string
	Path string
}

// Menu 菜单目录，文件名（不含扩展名）即菜名
type Menu struct {
	dir  string
	pick func(n int) int
}

// NewMenu 创建菜单
func NewMenu(dir string) *Menu {
	return &Menu{dir: dir, pick: rand.IntN}
}

// Foods 列出目录中的 .jpg/.png
func (m *Menu) Foods() ([]Food, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	var foods []Food
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".jpg" && ext != ".png" {
			continue
		}
		foods = append(foods, Food{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(m.dir, e.Name()),
		})
	}
	return foods, nil
}

// Pick 随机选一道菜并读取图片
func (m *Menu) Pick() (Food, []byte, error) {
	foods, err := m.Foods()
	if err != nil {
		return Food{}, nil, err
	}
	if len(foods) == 0 {
		return Food{}, nil, ErrNoFood
	}
	food := foods[m.pick(len(foods))]
	data, err := os.ReadFile(food.Path)
	if err != nil {
		return Food{}, nil, err
	}
	return food, data, nil
}

// New 创建插件
func New(menu *Menu, log logger.Logger) *chain.Plugin {
	if log == nil {
		log = logger.Nop()
	}
	return chain.NewPlugin(Name, "想想今天吃什么？").
		On("随机推荐食物", 0, chain.NewMatcher(chain.OnMessage(), chain.OnExactMatch("#wte")),
			func(ctx context.Context, c *chain.Context) (bool, error) {
				food, data, err := menu.Pick()
				if err != nil {
					log.WarnContext(ctx, "[wte] pick food failed", zap.String("dir", menu.dir), zap.Error(err))
					_, err = c.Reply(ctx, failedText)
					return true, err
				}
				_, err = c.ReplyContent(ctx,
					onebot.Text("今天吃"+food.Name+"！"),
					onebot.Image("base64://"+base64.StdEncoding.EncodeToString(data)),
				)
				return true, err
			})
}
