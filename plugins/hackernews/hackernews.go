// Package hackernews 拉取 Hacker News 热门内容，支持定时推送到群。
package hackernews

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/request"
)

// Name 插件名
const Name = "hackernews"

// Story 条目
type Story struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	By    string `json:"by"`
	Score int    `json:"score"`
	Type  string `json:"type"`
}

// CommentsURL 讨论页
func (s Story) CommentsURL() string {
	return "https://news.ycombinator.com/item?id=" + strconv.FormatInt(s.ID, 10)
}

func (s Story) String() string {
	link := s.URL
	if link == "" {
		link = s.CommentsURL()
	}
	return fmt.Sprintf("标题: %s\n链接：%s\n评论：%s", s.Title, link, s.CommentsURL())
}

// HackerNews 插件状态：HTTP 客户端、条目缓存、已推送过滤器
type HackerNews struct {
	config *Config
	client *request.Client
	loader *cache.Loader

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// New 创建插件状态
func New(opts ...Option) (*HackerNews, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Client == nil {
		cfg.Client = request.New(request.WithBaseURL(cfg.BaseURL), request.WithLogger(cfg.Logger))
	}
	if cfg.Cache == nil {
		c, err := cache.NewWithOptions(cache.WithMemory(nil))
		if err != nil {
			return nil, err
		}
		cfg.Cache = c
	}
	return &HackerNews{
		config: cfg,
		client: cfg.Client,
		loader: cache.NewLoader(cfg.Cache),
		seen:   bloom.NewWithEstimates(100_000, 0.001),
	}, nil
}

// TopStories 热门条目前 n 条，保持排名顺序，单条拉取失败时跳过
func (h *HackerNews) TopStories(ctx context.Context, n int) ([]Story, error) {
	ids, err := cache.Remember(ctx, h.loader, "hn:top", h.config.TopTTL, func(ctx context.Context) ([]int64, error) {
		return request.JSON[[]int64](h.client.Get(ctx, "/topstories.json"))
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > n {
		ids = ids[:n]
	}

	results := make([]*Story, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			story, err := h.item(gctx, id)
			if err != nil {
				h.config.Logger.WarnContext(ctx, "[hackernews] fetch item failed", zap.Int64("id", id), zap.Error(err))
				return nil
			}
			results[i] = story
			return nil
		})
	}
	_ = g.Wait()

	stories := make([]Story, 0, len(results))
	for _, s := range results {
		if s != nil {
			stories = append(stories, *s)
		}
	}
	return stories, nil
}

func (h *HackerNews) item(ctx context.Context, id int64) (*Story, error) {
	key := "hn:item:" + strconv.FormatInt(id, 10)
	return cache.Remember(ctx, h.loader, key, h.config.ItemTTL, func(ctx context.Context) (*Story, error) {
		return request.JSON[*Story](h.client.Get(ctx, fmt.Sprintf("/item/%d.json", id)))
	})
}

// Render #hn 的回复文本
func Render(stories []Story, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "好的，如下是 Hacker News top %d 的内容：", limit)
	for _, s := range stories {
		b.WriteString("\n\n")
		b.WriteString(s.String())
	}
	return b.String()
}

// Plugin 创建 #hn 插件
func (h *HackerNews) Plugin() *chain.Plugin {
	limit := h.config.Limit
	return chain.NewPlugin(Name, "获取 Hacker News 的内容").
		On(fmt.Sprintf("输出 Hacker News top %d", limit), 0, chain.NewMatcher(chain.OnMessage(), chain.OnExactMatch("#hn")),
			func(ctx context.Context, c *chain.Context) (bool, error) {
				stories, err := h.TopStories(ctx, limit)
				if err != nil {
					return false, err
				}
				_, err = c.SendForward(ctx, Render(stories, limit))
				return true, err
			})
}
