package hackernews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tokmz/qibot/pkg/cache"
	"github.com/tokmz/qibot/pkg/chain/chaintest"
	"github.com/tokmz/qibot/pkg/job"
	"github.com/tokmz/qibot/pkg/logger"
	"github.com/tokmz/qibot/pkg/onebot"
)

// hnServer 模拟 API：top 为 1..5，条目 3 返回 500
type hnServer struct {
	*httptest.Server
	top   atomic.Int32
	items atomic.Int32
	ids   atomic.Value
}

func newServer(t *testing.T) *hnServer {
	t.Helper()
	s := &hnServer{}
	s.ids.Store("[1,2,3,4,5]")
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/topstories.json" {
			s.top.Add(1)
			fmt.Fprint(w, s.ids.Load().(string))
			return
		}
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/item/%d.json", &id); err != nil {
			http.NotFound(w, r)
			return
		}
		s.items.Add(1)
		if id == 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		url := fmt.Sprintf("https://example.com/%d", id)
		if id == 4 {
			url = ""
		}
		fmt.Fprintf(w, `{"id": %d, "title": "story %d", "url": %q, "type": "story"}`, id, id, url)
	}))
	t.Cleanup(s.Close)
	return s
}

type fakeBot struct {
	*chaintest.Recorder
}

func (fakeBot) LoginInfo() *onebot.GetLoginInfoResult {
	return &onebot.GetLoginInfoResult{UserID: 10001, Nickname: "qibot"}
}

func TestTopStories(t *testing.T) {
	srv := newServer(t)
	h, err := New(WithBaseURL(srv.URL), WithLimit(4))
	require.NoError(t, err)

	stories, err := h.TopStories(context.Background(), 4)
	require.NoError(t, err)

	var ids []int64
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	// 条目 3 失败被跳过，其余保持顺序
	assert.Equal(t, []int64{1, 2, 4}, ids)
	assert.Equal(t, "https://news.ycombinator.com/item?id=4", stories[2].CommentsURL())
	assert.Contains(t, stories[2].String(), "链接：https://news.ycombinator.com/item?id=4")

	// 命中缓存，失败的条目会重新请求
	before := srv.items.Load()
	_, err = h.TopStories(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.top.Load())
	assert.Equal(t, before+1, srv.items.Load())
}

func TestHNCommand(t *testing.T) {
	srv := newServer(t)
	h, err := New(WithBaseURL(srv.URL), WithLimit(2))
	require.NoError(t, err)

	rec := &chaintest.Recorder{}
	require.True(t, chaintest.Dispatch(context.Background(), rec, chaintest.GroupMessage(1, 2, "#hn"), h.Plugin()))

	reqs := rec.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, onebot.ActionSendForwardMsg, reqs[0].Action)
	params := reqs[0].Params.(onebot.SendForwardMsgParams)
	nodes := params.Messages.Segments()
	require.Len(t, nodes, 1)
	assert.Equal(t, onebot.SegmentNode, nodes[0].Type)

	text := nodes[0].Data["content"].(onebot.Message).PlainText()
	assert.True(t, strings.HasPrefix(text, "好的，如下是 Hacker News top 2 的内容："))
	assert.Contains(t, text, "标题: story 1")
	assert.Contains(t, text, "标题: story 2")
}

func TestHNUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	h, err := New(WithBaseURL(srv.URL))
	require.NoError(t, err)

	rec := &chaintest.Recorder{}
	assert.False(t, chaintest.Dispatch(context.Background(), rec, chaintest.GroupMessage(1, 2, "#hn"), h.Plugin()))
	assert.Empty(t, rec.Requests())
}

func TestPush(t *testing.T) {
	srv := newServer(t)
	h, err := New(WithBaseURL(srv.URL), WithLimit(2), WithPush("0 9 * * *", 100, 200))
	require.NoError(t, err)
	bot := fakeBot{&chaintest.Recorder{}}

	require.NoError(t, h.Push(context.Background(), bot))
	reqs := bot.Requests()
	require.Len(t, reqs, 2)
	for i, gid := range []int64{100, 200} {
		params := reqs[i].Params.(onebot.SendForwardMsgParams)
		assert.Equal(t, gid, *params.GroupID)
		nodes := params.Messages.Segments()
		require.Len(t, nodes, 2)
		assert.Equal(t, "10001", nodes[0].String("user_id"))
	}

	// 已推送的不再推送
	bot.Reset()
	require.NoError(t, h.Push(context.Background(), bot))
	assert.Empty(t, bot.Requests())

	// 新条目只推送新的
	srv.ids.Store("[6,1,2]")
	h.loader.Cache().Delete(context.Background(), "hn:top")
	require.NoError(t, h.Push(context.Background(), bot))
	require.Len(t, bot.Requests(), 2)
	sent := bot.SentTo(100)
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Segments(), 1)
}

func TestPushFailureRetries(t *testing.T) {
	srv := newServer(t)
	h, err := New(WithBaseURL(srv.URL), WithLimit(1), WithPush("@daily", 100))
	require.NoError(t, err)

	bot := fakeBot{&chaintest.Recorder{Fail: func(onebot.Request) error { return assert.AnError }}}
	assert.ErrorIs(t, h.Push(context.Background(), bot), assert.AnError)

	bot.Fail = nil
	require.NoError(t, h.Push(context.Background(), bot))
	assert.Len(t, bot.Requests(), 1)
}

// failingDelete 删除总是失败的缓存
type failingDelete struct {
	cache.Cache
}

func (failingDelete) Delete(context.Context, ...string) error { return assert.AnError }

func TestPushUnmarkFailureLogged(t *testing.T) {
	srv := newServer(t)
	store, err := cache.NewWithOptions(cache.WithMemory(nil))
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)

	h, err := New(WithBaseURL(srv.URL), WithLimit(1), WithPush("@daily", 100),
		WithCache(failingDelete{store}), WithLogger(logger.NewWithCore(core)))
	require.NoError(t, err)

	bot := fakeBot{&chaintest.Recorder{Fail: func(onebot.Request) error { return assert.AnError }}}
	assert.ErrorIs(t, h.Push(context.Background(), bot), assert.AnError)

	assert.Len(t, logs.FilterMessage("[hackernews] push failed").All(), 1)
	entries := logs.FilterMessage("[hackernews] unmark pushed failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(100), entries[0].ContextMap()["group_id"])
	assert.Equal(t, assert.AnError.Error(), entries[0].ContextMap()["error"])
}

func TestJob(t *testing.T) {
	h, err := New()
	require.NoError(t, err)
	assert.Nil(t, h.Job(fakeBot{&chaintest.Recorder{}}))

	srv := newServer(t)
	h, err = New(WithBaseURL(srv.URL), WithLimit(1), WithPush("@daily", 100))
	require.NoError(t, err)
	bot := fakeBot{&chaintest.Recorder{}}

	s := job.New()
	id, err := s.Add(h.Job(bot))
	require.NoError(t, err)
	run, err := s.Trigger(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, job.RunStatusSuccess, run.Status)
	assert.Len(t, bot.Requests(), 1)
}
