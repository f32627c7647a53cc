package chain

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/onebot"
)

func groupMsg(text string) *onebot.GroupMessage {
	return &onebot.GroupMessage{
		Header:      onebot.Header{PostType: "message"},
		MessageType: onebot.MessageTypeGroup,
		MessageID:   42,
		GroupID:     123456,
		UserID:      654321,
		Message:     onebot.TextMessage(text),
		Sender:      onebot.Sender{UserID: 654321, Nickname: "bocchi"},
	}
}

func privateMsg(text string) *onebot.PrivateMessage {
	return &onebot.PrivateMessage{
		Header:      onebot.Header{PostType: "message"},
		MessageType: onebot.MessageTypePrivate,
		MessageID:   7,
		UserID:      1001,
		Message:     onebot.TextMessage(text),
		Sender:      onebot.Sender{UserID: 1001, Nickname: "nijika"},
	}
}

// recorder 记录所有请求，send 类动作返回 message_id
type recorder struct {
	mu   sync.Mutex
	reqs []onebot.Request
}

func (r *recorder) Call(ctx context.Context, req onebot.Request) (*onebot.Response, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	return &onebot.Response{Echo: req.Echo, Status: "ok", Data: json.RawMessage(`{"message_id": 1}`)}, nil
}

var _ caller.Caller = (*recorder)(nil)

func TestTextRules(t *testing.T) {
	help := OnExactMatch("#help")
	assert.True(t, help.IsMatch(groupMsg("  #help  ")))
	assert.False(t, help.IsMatch(groupMsg("#help now")))
	assert.Equal(t, "on_exact_match(#help)", help.Name())

	assert.True(t, OnPrefix("#echo").IsMatch(groupMsg(" #echo hi")))
	assert.False(t, OnPrefix("#echo").IsMatch(groupMsg("hi #echo")))
	assert.True(t, OnSuffix("?").IsMatch(privateMsg("why? ")))

	// 无文本段的消息按空串匹配
	media := groupMsg("")
	media.Message = onebot.SegmentMessage(onebot.Image("a.png"))
	assert.True(t, OnExactMatch("").IsMatch(media))
	assert.False(t, OnPrefix("#").IsMatch(media))

	// 非消息事件不匹配文本规则
	assert.False(t, OnExactMatch("").IsMatch(&onebot.HeartBeat{}))
}

func TestEventRules(t *testing.T) {
	g, p := groupMsg("x"), privateMsg("x")
	hb := &onebot.HeartBeat{}

	assert.True(t, OnMessage().IsMatch(g))
	assert.True(t, OnMessage().IsMatch(p))
	assert.False(t, OnMessage().IsMatch(hb))
	assert.True(t, OnGroupMessage().IsMatch(g))
	assert.False(t, OnGroupMessage().IsMatch(p))
	assert.True(t, OnPrivateMessage().IsMatch(p))

	assert.True(t, OnSenderID(654321).IsMatch(g))
	assert.False(t, OnSenderID(1).IsMatch(g))
	assert.False(t, OnSenderID(0).IsMatch(hb))

	assert.True(t, OnGroupID(123456).IsMatch(g))
	assert.False(t, OnGroupID(123456).IsMatch(p))
}

func TestMatcherShortCircuit(t *testing.T) {
	calls := 0
	counting := OnEvent("counting", func(onebot.Event) bool {
		calls++
		return true
	})

	m := NewMatcher(OnPrivateMessage(), counting)
	assert.False(t, m.IsMatch(groupMsg("x")))
	assert.Equal(t, 0, calls)

	assert.True(t, m.IsMatch(privateMsg("x")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "on_private_message & counting", m.String())

	extended := m.And(OnPrefix("#"))
	assert.Len(t, m.Rules(), 2, "And must not modify the receiver")
	assert.Len(t, extended.Rules(), 3)

	merged := OnMessage().And(OnPrefix("#a")).Merge(NewMatcher(OnSuffix("z")))
	assert.Equal(t, "on_message & on_prefix(#a) & on_suffix(z)", merged.String())
}

func TestFlattenPriorityOrder(t *testing.T) {
	var order []string
	mk := func(name string) Handler {
		return func(ctx context.Context, c *Context) (bool, error) {
			order = append(order, name)
			return false, nil
		}
	}

	a := NewPlugin("a", "")
	a.On("p5", 5, NewMatcher(), mk("p5"))
	a.On("p1", 1, NewMatcher(), mk("p1"))
	b := NewPlugin("b", "")
	b.On("p10", 10, NewMatcher(), mk("p10"))
	b.On("p5-b", 5, NewMatcher(), mk("p5-b"))

	unions := Flatten(a, b)
	var got []string
	for _, u := range unions {
		got = append(got, u.Description())
	}
	assert.Equal(t, []string{"p10", "p5", "p5-b", "p1"}, got)

	d := NewDispatcher(unions, []*Plugin{a, b})
	assert.False(t, d.Dispatch(context.Background(), &recorder{}, groupMsg("x")))
	assert.Equal(t, []string{"p10", "p5", "p5-b", "p1"}, order)

	assert.Panics(t, func() { a.On("late", 0, NewMatcher(), mk("late")) })
}

func TestDispatchShortCircuit(t *testing.T) {
	for _, tc := range []struct {
		name         string
		firstHandled bool
		secondCalled bool
	}{
		{"handled stops", true, false},
		{"not handled continues", false, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			secondCalled := false
			p := NewPlugin("p", "")
			p.On("first", 2, NewMatcher(OnMessage()), func(ctx context.Context, c *Context) (bool, error) {
				return tc.firstHandled, nil
			})
			p.On("second", 1, NewMatcher(OnMessage()), func(ctx context.Context, c *Context) (bool, error) {
				secondCalled = true
				return true, nil
			})
			d := NewDispatcher(Flatten(p), []*Plugin{p})
			assert.True(t, d.Dispatch(context.Background(), &recorder{}, groupMsg("x")))
			assert.Equal(t, tc.secondCalled, secondCalled)
		})
	}
}

func TestDispatchErrorAndPanicContinue(t *testing.T) {
	var reached bool
	p := NewPlugin("p", "")
	p.On("fails", 3, nil, func(ctx context.Context, c *Context) (bool, error) {
		return true, stderrors.New("boom")
	})
	p.On("panics", 2, nil, func(ctx context.Context, c *Context) (bool, error) {
		panic("bad handler")
	})
	p.On("last", 1, nil, func(ctx context.Context, c *Context) (bool, error) {
		reached = true
		return true, nil
	})

	var observed []string
	d := NewDispatcher(Flatten(p), []*Plugin{p}, WithMiddleware(Timed(
		func(u *MatchUnion, handled bool, err error, _ time.Duration) {
			observed = append(observed, u.Description())
		})))

	assert.True(t, d.Dispatch(context.Background(), &recorder{}, privateMsg("x")))
	assert.True(t, reached)
	// panic 的处理器不会走到 observe
	assert.Equal(t, []string{"fails", "last"}, observed)
}

func TestContextSendTargets(t *testing.T) {
	rec := &recorder{}
	ctx := context.Background()

	gc := NewContext(rec, groupMsg("#echo hi"), nil)
	_, err := gc.Send(ctx, "hi")
	require.NoError(t, err)
	params := rec.reqs[0].Params.(onebot.SendMsgParams)
	assert.Equal(t, onebot.MessageTypeGroup, params.MessageType)
	assert.Equal(t, int64(123456), *params.GroupID)
	assert.Nil(t, params.UserID)
	assert.Equal(t, "hi", gc.Args("#echo"))

	pc := NewContext(rec, privateMsg("x"), nil)
	_, err = pc.Reply(ctx, "pong")
	require.NoError(t, err)
	params = rec.reqs[1].Params.(onebot.SendMsgParams)
	assert.Equal(t, int64(1001), *params.UserID)
	segs := params.Message.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, onebot.SegmentReply, segs[0].Type)
	assert.Equal(t, "7", segs[0].String("id"))
	assert.Equal(t, "pong", segs[1].String("text"))

	require.NoError(t, pc.SetReaction(ctx, 76))
	assert.Equal(t, onebot.ActionSetMsgEmojiLike, rec.reqs[2].Action)

	_, err = gc.SendForward(ctx, "a", "b")
	require.NoError(t, err)
	fwd := rec.reqs[3].Params.(onebot.SendForwardMsgParams)
	nodes := fwd.Messages.Segments()
	require.Len(t, nodes, 2)
	assert.Equal(t, onebot.SegmentNode, nodes[0].Type)
	assert.Equal(t, "654321", nodes[0].String("user_id"))
	assert.Equal(t, "bocchi", nodes[0].String("nickname"))

	hc := NewContext(rec, &onebot.HeartBeat{}, nil)
	_, err = hc.Send(ctx, "x")
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Equal(t, errors.ErrStatus.Code, errors.CodeOf(err))
}
