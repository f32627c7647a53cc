package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/onebot"
)

type wireRequest struct {
	Echo   int64           `json:"echo"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

func readRequest(conn *websocket.Conn) (wireRequest, error) {
	var req wireRequest
	_, data, err := conn.ReadMessage()
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(data, &req)
	return req, err
}

func reply(conn *websocket.Conn, echo int64, data string) error {
	frame := fmt.Sprintf(`{"echo": %d, "status": "ok", "retcode": 0, "data": %s}`, echo, data)
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func groupEvent(messageID int64, text string) []byte {
	return []byte(fmt.Sprintf(`{"time": 1, "self_id": 10001, "post_type": "message", "message_type": "group",
		"sub_type": "normal", "message_id": %d, "group_id": 100, "user_id": 200, "message": %q,
		"raw_message": %q, "font": 0, "sender": {"user_id": 200, "nickname": "kita"}}`, messageID, text, text))
}

// drain 读到连接关闭为止
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// startServer 启动 websocket 测试服务端，返回 ws:// 地址
func startServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type running struct {
	*Adapter
	cancel   context.CancelFunc
	finished chan struct{}
	err      error
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case <-r.finished:
		return r.err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	return nil
}

func startAdapter(t *testing.T, url string, plugins []*chain.Plugin, opts ...Option) *running {
	t.Helper()
	a, err := Dial(context.Background(), url, opts...)
	require.NoError(t, err)
	assert.Equal(t, StateNotConnected, a.Status().State)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{Adapter: a, cancel: cancel, finished: make(chan struct{})}
	go func() {
		r.err = a.Run(ctx, chain.Flatten(plugins...), plugins)
		close(r.finished)
	}()
	require.Eventually(t, func() bool {
		return a.Status().State != StateNotConnected
	}, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-r.finished
	})
	return r
}

func TestCallCorrelation(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		var reqs []wireRequest
		for len(reqs) < 2 {
			req, err := readRequest(conn)
			if err != nil {
				return
			}
			reqs = append(reqs, req)
		}
		// 未知 echo 的响应被丢弃
		_ = reply(conn, 1, `null`)
		// 倒序回复
		for i := len(reqs) - 1; i >= 0; i-- {
			var p struct {
				UserID int64 `json:"user_id"`
			}
			_ = json.Unmarshal(reqs[i].Params, &p)
			_ = reply(conn, reqs[i].Echo, fmt.Sprintf(`{"message_id": %d}`, p.UserID))
		}
		drain(conn)
	})

	var dropped atomic.Int32
	a, err := Dial(context.Background(), url)
	require.NoError(t, err)
	a.Events().Subscribe(EventResponseDropped, func(Event) { dropped.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, nil, nil) }()
	require.Eventually(t, func() bool { return a.Status().State == StateConnected }, time.Second, 5*time.Millisecond)

	api := caller.New(a)
	var wg sync.WaitGroup
	results := make([]int64, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := api.SendPrivateMsg(context.Background(), onebot.SendPrivateMsgParams{
				UserID:  int64(i + 1),
				Message: onebot.TextMessage("hi"),
			})
			if assert.NoError(t, err) {
				results[i] = res.MessageID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int64{1, 2}, results)
	assert.Equal(t, 0, a.Pending())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	// Run 返回时事件总线已处理完剩余事件
	assert.Equal(t, int32(1), dropped.Load())

	st := a.Status()
	assert.Equal(t, StateDisconnected, st.State)
	assert.ErrorIs(t, st.Reason, context.Canceled)
}

func TestCallTimeoutRemovesEntry(t *testing.T) {
	url := startServer(t, drain)
	r := startAdapter(t, url, nil)
	r.callTimeout = 100 * time.Millisecond

	start := time.Now()
	_, err := r.Call(context.Background(), onebot.NewRequest(onebot.ActionGetLoginInfo, nil))
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 0, r.Pending())
}

func TestCallTimeoutFixedWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full call timeout")
	}
	url := startServer(t, drain)
	r := startAdapter(t, url, nil)

	start := time.Now()
	_, err := caller.New(r).GetLoginInfo(context.Background())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.InDelta(t, CallTimeout.Seconds(), elapsed.Seconds(), 1)
	assert.Equal(t, 0, r.Pending())
}

func TestCallContextCanceled(t *testing.T) {
	url := startServer(t, drain)
	r := startAdapter(t, url, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Call(ctx, onebot.NewRequest(onebot.ActionGetLoginInfo, nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, r.Pending())
}

func TestDisconnectFailsCalls(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		// 读到第一个请求后直接断开
		_, _ = readRequest(conn)
	})
	r := startAdapter(t, url, nil)

	_, err := r.Call(context.Background(), onebot.NewRequest(onebot.ActionGetLoginInfo, nil))
	assert.ErrorIs(t, err, errors.ErrTransport)

	runErr := r.wait(t)
	assert.ErrorIs(t, runErr, errors.ErrTransport)
	assert.Equal(t, StateDisconnected, r.Status().State)

	select {
	case <-r.Done():
	default:
		t.Fatal("Done should be closed after disconnect")
	}

	start := time.Now()
	_, err = r.Call(context.Background(), onebot.NewRequest(onebot.ActionGetLoginInfo, nil))
	assert.ErrorIs(t, err, errors.ErrStatus)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestCallBeforeRun(t *testing.T) {
	url := startServer(t, drain)
	a, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Call(context.Background(), onebot.NewRequest(onebot.ActionGetLoginInfo, nil))
	assert.ErrorIs(t, err, errors.ErrStatus)
}

func TestRunTwice(t *testing.T) {
	url := startServer(t, drain)
	r := startAdapter(t, url, nil)

	err := r.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStatusChanged(t *testing.T) {
	url := startServer(t, drain)
	a, err := Dial(context.Background(), url)
	require.NoError(t, err)

	changed := a.Changed()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, nil, nil) }()

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("status did not change")
	}
	assert.Equal(t, StateConnected, a.Status().State)

	cancel()
	<-done
	assert.Equal(t, StateDisconnected, a.Status().State)
}

func TestDispatchConcurrent(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, groupEvent(1, "#slow a"))
		_ = conn.WriteMessage(websocket.TextMessage, groupEvent(2, "#slow b"))
		drain(conn)
	})

	entered := make(chan int64, 2)
	release := make(chan struct{})
	p := chain.NewPlugin("slow", "")
	p.On("slow", 0, chain.NewMatcher(chain.OnPrefix("#slow")), func(ctx context.Context, c *chain.Context) (bool, error) {
		id, _ := onebot.MessageIDOf(c.Event)
		entered <- id
		<-release
		return true, nil
	})
	startAdapter(t, url, []*chain.Plugin{p})

	// 两个处理器同时处于执行中，说明事件各自分发
	got := map[int64]bool{}
	for len(got) < 2 {
		select {
		case id := <-entered:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("events were not dispatched concurrently")
		}
	}
	close(release)
	assert.Equal(t, map[int64]bool{1: true, 2: true}, got)
}

func TestHandlerRoundTrip(t *testing.T) {
	sent := make(chan wireRequest, 1)
	url := startServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, groupEvent(9, "  #echo hello  "))
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		sent <- req
		_ = reply(conn, req.Echo, `{"message_id": 10}`)
		drain(conn)
	})

	results := make(chan int64, 1)
	p := chain.NewPlugin("echo", "")
	p.On("echo", 0, chain.NewMatcher(chain.OnGroupMessage(), chain.OnPrefix("#echo")), func(ctx context.Context, c *chain.Context) (bool, error) {
		res, err := c.Send(ctx, c.Args("#echo"))
		if err != nil {
			return false, err
		}
		results <- res.MessageID
		return true, nil
	})
	startAdapter(t, url, []*chain.Plugin{p})

	select {
	case req := <-sent:
		assert.Equal(t, string(onebot.ActionSendMsg), req.Action)
		var params struct {
			MessageType string `json:"message_type"`
			GroupID     int64  `json:"group_id"`
			Message     string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, "group", params.MessageType)
		assert.Equal(t, int64(100), params.GroupID)
		assert.Equal(t, "hello", params.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not send")
	}

	select {
	case id := <-results:
		assert.Equal(t, int64(10), id)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not receive the response")
	}
}

func TestUnrecognizedFramesDropped(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"post_type": "notice", "notice_type": "group_recall"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		drain(conn)
	})

	a, err := Dial(context.Background(), url)
	require.NoError(t, err)
	var count atomic.Int32
	a.Events().Subscribe(EventUnrecognized, func(Event) { count.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, nil, nil) }()

	assert.Eventually(t, func() bool { return count.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateConnected, a.Status().State)
	cancel()
	<-done
}

func TestDialAccessToken(t *testing.T) {
	var auth atomic.Value
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	defer srv.Close()

	a, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), WithAccessToken("secret"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth.Load())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Status().Reason, ErrClosed)
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	assert.ErrorIs(t, err, errors.ErrTransport)

	_, err = Dial(context.Background(), "http://127.0.0.1:1")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestOutboundFramesInEnqueueOrder(t *testing.T) {
	const n = 8
	received := make(chan wireRequest, n)
	url := startServer(t, func(conn *websocket.Conn) {
		for {
			req, err := readRequest(conn)
			if err != nil {
				return
			}
			received <- req
			if reply(conn, req.Echo, `{"message_id": 1}`) != nil {
				return
			}
		}
	})

	a, err := Dial(context.Background(), url, WithQueueSize(n))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		a.events.Close()
	})
	// 先进入 Connected 但不启动收发循环，让请求依次排进队列
	require.True(t, a.status.connect())

	errs := make(chan error, n)
	for i := range n {
		go func() {
			_, err := a.Call(context.Background(), onebot.NewRequest(onebot.ActionSendPrivateMsg, onebot.SendPrivateMsgParams{
				UserID:  int64(i),
				Message: onebot.TextMessage(fmt.Sprint(i)),
			}))
			errs <- err
		}()
		require.Eventually(t, func() bool { return len(a.queue) == i+1 }, time.Second, time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.writePump(ctx) }()
	go func() { _ = a.readPump(context.WithoutCancel(ctx), chain.NewDispatcher(nil, nil)) }()

	echoes := make(map[int64]bool)
	for i := range n {
		select {
		case req := <-received:
			assert.Equal(t, string(onebot.ActionSendPrivateMsg), req.Action)
			var p struct {
				UserID int64 `json:"user_id"`
			}
			require.NoError(t, json.Unmarshal(req.Params, &p))
			assert.Equal(t, int64(i), p.UserID, "frame %d out of order", i)
			echoes[req.Echo] = true
		case <-time.After(3 * time.Second):
			t.Fatalf("frame %d not received", i)
		}
	}
	assert.Len(t, echoes, n)

	for range n {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, 0, a.Pending())
}

func TestPeerNormalClose(t *testing.T) {
	url := startServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		drain(conn)
	})
	r := startAdapter(t, url, nil)

	assert.NoError(t, r.wait(t))
	st := r.Status()
	assert.Equal(t, StateDisconnected, st.State)
	assert.NoError(t, st.Reason)
	assert.Equal(t, "disconnected", st.String())

	_, err := r.Call(context.Background(), onebot.NewRequest(onebot.ActionGetLoginInfo, nil))
	assert.ErrorIs(t, err, errors.ErrStatus)
}
