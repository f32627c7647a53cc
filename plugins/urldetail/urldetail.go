// Package urldetail 识别群消息中的视频、音乐链接，回复标题、作者等详情。
package urldetail

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/request"
)

// Name 插件名
const Name = "urldetail"

// ErrDetail 详情接口返回了错误或无法解析的数据
var ErrDetail = errors.New(5201, "urldetail: bad detail response", nil)

// Recognizer 识别文本中的一类链接并生成详情消息
// 文本中没有该类链接时返回 nil, nil
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, text string) ([]onebot.Segment, error)
}

type result struct {
	name     string
	segments []onebot.Segment
	err      error
}

// New 创建链接解析插件，默认识别哔哩哔哩，配置了 YouTube Key 时同时识别 YouTube
func New(opts ...Option) (*chain.Plugin, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Client == nil {
		cfg.Client = request.New(request.WithLogger(cfg.Logger))
	}
	if cfg.Cache == nil {
		c, err := cache.NewWithOptions(cache.WithMemory(nil))
		if err != nil {
			return nil, err
		}
		cfg.Cache = c
	}

	loader := cache.NewLoader(cfg.Cache)
	recognizers := []Recognizer{NewBilibili(cfg.Client, loader, cfg.TTL)}
	if cfg.YouTubeKey != "" {
		recognizers = append(recognizers, NewYouTube(cfg.Client, loader, cfg.TTL, cfg.YouTubeKey))
	}
	recognizers = append(recognizers, cfg.Recognizers...)
	return Plugin(cfg.Logger, recognizers...), nil
}

// Plugin 用给定识别器创建插件
// 优先级高于普通命令；处理器总是返回 false，不阻止其它插件处理同一条消息
func Plugin(log logger.Logger, recognizers ...Recognizer) *chain.Plugin {
	if log == nil {
		log = logger.Nop()
	}
	hasURL := chain.OnText("has_url", func(text string) bool {
		return strings.Contains(text, "http://") || strings.Contains(text, "https://")
	})
	return chain.NewPlugin(Name, "解析消息中的链接，展示详情").
		On("识别消息中是否包含可解析详情的链接", 1, chain.NewMatcher(chain.OnGroupMessage(), hasURL),
			func(ctx context.Context, c *chain.Context) (bool, error) {
				segments := recognize(ctx, log, c.PlainText(), recognizers)
				if len(segments) == 0 {
					return false, nil
				}
				if _, err := c.ReplyContent(ctx, segments...); err != nil {
					log.WarnContext(ctx, "[urldetail] 获取详情成功但发送失败", zap.Error(err))
				}
				return false, nil
			})
}

// recognize 并发识别，取最先得到的详情
// 暂时认为一条消息只包含一种链接
func recognize(ctx context.Context, log logger.Logger, text string, recognizers []Recognizer) []onebot.Segment {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result, len(recognizers))
	for _, r := range recognizers {
		go func() {
			segments, err := r.Recognize(ctx, text)
			results <- result{name: r.Name(), segments: segments, err: err}
		}()
	}
	for range recognizers {
		res := <-results
		if res.err != nil {
			log.WarnContext(ctx, "[urldetail] 识别失败", zap.String("recognizer", res.name), zap.Error(res.err))
			continue
		}
		if len(res.segments) > 0 {
			return res.segments
		}
	}
	return nil
}
