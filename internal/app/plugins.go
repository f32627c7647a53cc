package app

import (
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/request"
	"github.com/tokmz/qibot/plugins/bonus"
	"github.com/tokmz/qibot/plugins/echo"
	"github.com/tokmz/qibot/plugins/forward"
	"github.com/tokmz/qibot/plugins/hackernews"
	"github.com/tokmz/qibot/plugins/help"
	"github.com/tokmz/qibot/plugins/repeat"
	"github.com/tokmz/qibot/plugins/selector"
	"github.com/tokmz/qibot/plugins/urldetail"
	"github.com/tokmz/qibot/plugins/wte"
)

// Builtin 内置插件名，按注册顺序
var Builtin = []string{
	forward.Name,
	urldetail.Name,
	help.Name,
	echo.Name,
	selector.Name,
	bonus.Name,
	hackernews.Name,
	wte.Name,
	repeat.Name,
}

// plugins 按配置创建启用的内置插件，forward 只在配置了消息队列时启用
func (a *App) plugins(o *options) ([]*chain.Plugin, error) {
	s := a.Settings
	var plugins []*chain.Plugin

	if a.Publisher != nil && s.PluginEnabled(forward.Name) {
		plugins = append(plugins, forward.New(a.Publisher))
	}
	if s.PluginEnabled(urldetail.Name) {
		ud := s.Plugins.URLDetail
		p, err := urldetail.New(
			urldetail.WithClient(request.New(
				request.WithLogger(a.Logger),
				request.WithTracing(s.Tracing.Enabled),
			)),
			urldetail.WithCache(a.Cache),
			urldetail.WithLogger(a.Logger),
			urldetail.WithTTL(ud.TTL),
			urldetail.WithYouTubeKey(ud.YouTubeKey),
		)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	if s.PluginEnabled(help.Name) {
		plugins = append(plugins, help.New())
	}
	if s.PluginEnabled(echo.Name) {
		plugins = append(plugins, echo.New())
	}
	if s.PluginEnabled(selector.Name) {
		plugins = append(plugins, selector.New(nil))
	}
	if s.PluginEnabled(bonus.Name) {
		svc, err := bonus.NewService(a.DB, bonus.WithRange(s.Plugins.Bonus.Min, s.Plugins.Bonus.Max))
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, bonus.New(svc))
	}
	if s.PluginEnabled(hackernews.Name) {
		hn := s.Plugins.HackerNews
		client := request.New(
			request.WithBaseURL(hn.BaseURL),
			request.WithLogger(a.Logger),
			request.WithTracing(s.Tracing.Enabled),
			request.WithRetry(request.DefaultRetryConfig()),
		)
		h, err := hackernews.New(
			hackernews.WithClient(client),
			hackernews.WithCache(a.Cache),
			hackernews.WithLogger(a.Logger),
			hackernews.WithLimit(hn.Limit),
			hackernews.WithPush(hn.Cron, hn.Groups...),
		)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, h.Plugin())
		if j := h.Job(a.Bot); j != nil {
			if _, err := a.Scheduler.Add(j); err != nil {
				return nil, err
			}
		}
	}
	if s.PluginEnabled(wte.Name) {
		plugins = append(plugins, wte.New(wte.NewMenu(s.Plugins.WTE.Dir), a.Logger))
	}
	if s.PluginEnabled(repeat.Name) {
		plugins = append(plugins, repeat.New(a.Cache))
	}
	return append(plugins, o.extra...), nil
}
