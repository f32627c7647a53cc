package hackernews

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/job"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/utils/pointer"
)

// Bot 定时推送使用的机器人句柄
type Bot interface {
	caller.Caller
	LoginInfo() *onebot.GetLoginInfoResult
}

// Job 定时推送任务，未配置 Cron 或群时返回 nil
func (h *HackerNews) Job(bot Bot) *job.Job {
	if h.config.Cron == "" || len(h.config.Groups) == 0 {
		return nil
	}
	return &job.Job{
		Name:        "hackernews.push",
		Description: "推送新的 Hacker News 热门内容",
		Type:        job.JobTypeCron,
		Cron:        h.config.Cron,
		Timeout:     2 * time.Minute,
		MaxRetry:    1,
		Handler: func(ctx context.Context) error {
			return h.Push(ctx, bot)
		},
	}
}

// Push 把各群尚未推送过的热门条目以合并转发发出
// 布隆过滤器做进程内快速去重，缓存 SetNX 保证重启后（Redis）也不重复
func (h *HackerNews) Push(ctx context.Context, bot Bot) error {
	stories, err := h.TopStories(ctx, h.config.Limit)
	if err != nil {
		return err
	}

	api := caller.New(bot)
	selfID, nickname := "0", "Hacker News"
	if info := bot.LoginInfo(); info != nil {
		selfID = strconv.FormatInt(info.UserID, 10)
	}

	var firstErr error
	for _, groupID := range h.config.Groups {
		fresh, keys := h.unseen(ctx, groupID, stories)
		if len(fresh) == 0 {
			continue
		}

		nodes := make([]onebot.Segment, len(fresh))
		for i, s := range fresh {
			nodes[i] = onebot.Node(selfID, nickname, onebot.TextMessage(s.String()))
		}
		_, err := api.SendForwardMsg(ctx, onebot.SendForwardMsgParams{
			MessageType: onebot.MessageTypeGroup,
			GroupID:     pointer.Of(groupID),
			Messages:    onebot.SegmentMessage(nodes...),
		})
		if err != nil {
			h.config.Logger.WarnContext(ctx, "[hackernews] push failed", zap.Int64("group_id", groupID), zap.Error(err))
			// 发送失败时撤销标记，下次重试
			if derr := h.config.Cache.Delete(context.WithoutCancel(ctx), keys...); derr != nil {
				h.config.Logger.WarnContext(ctx, "[hackernews] unmark pushed failed",
					zap.Int64("group_id", groupID), zap.Strings("keys", keys), zap.Error(derr))
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		h.mu.Lock()
		for _, key := range keys {
			h.seen.AddString(key)
		}
		h.mu.Unlock()
		h.config.Logger.InfoContext(ctx, "[hackernews] pushed", zap.Int64("group_id", groupID), zap.Int("stories", len(fresh)))
	}
	return firstErr
}

// unseen 过滤出未推送过的条目并占位标记
func (h *HackerNews) unseen(ctx context.Context, groupID int64, stories []Story) ([]Story, []string) {
	var (
		fresh []Story
		keys  []string
	)
	for _, s := range stories {
		key := "hn:pushed:" + strconv.FormatInt(groupID, 10) + ":" + strconv.FormatInt(s.ID, 10)

		h.mu.Lock()
		maybeSeen := h.seen.TestString(key)
		h.mu.Unlock()
		if maybeSeen {
			continue
		}

		ok, err := h.config.Cache.SetNX(ctx, key, s.ID, h.config.PushedTTL)
		if err != nil {
			h.config.Logger.WarnContext(ctx, "[hackernews] mark pushed failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if !ok {
			// 其它实例或上次运行已推送
			h.mu.Lock()
			h.seen.AddString(key)
			h.mu.Unlock()
			continue
		}
		fresh = append(fresh, s)
		keys = append(keys, key)
	}
	return fresh, keys
}
