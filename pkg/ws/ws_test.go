package ws

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/onebot"
)

func TestPendingTable(t *testing.T) {
	var p pendingTable

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		echo, _ := p.register()
		assert.False(t, seen[echo], "echo reused while outstanding")
		seen[echo] = true
	}
	assert.Equal(t, 1000, p.len())

	echo, ch := p.register()
	resp := &onebot.Response{Echo: echo, Status: "ok"}
	assert.True(t, p.resolve(echo, resp))
	assert.Same(t, resp, <-ch)
	assert.False(t, p.has(echo))

	// 重复 resolve 与 remove 都不生效
	assert.False(t, p.resolve(echo, resp))
	p.remove(echo)
	p.remove(echo)
	assert.Equal(t, 1000, p.len())

	for e := range seen {
		p.remove(e)
	}
	assert.Equal(t, 0, p.len())
}

func TestPendingTableConcurrentRemove(t *testing.T) {
	var p pendingTable
	echo, _ := p.register()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.remove(echo)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, p.len())
	assert.False(t, p.has(echo))
}

func TestStatusTransitions(t *testing.T) {
	c := newStatusCell()
	st, changed := c.watch()
	assert.Equal(t, StateNotConnected, st.State)

	require.True(t, c.connect())
	select {
	case <-changed:
	default:
		t.Fatal("changed should be closed on transition")
	}
	assert.False(t, c.connect())

	first := stderrors.New("first")
	assert.True(t, c.disconnect(first))
	assert.False(t, c.disconnect(stderrors.New("second")))
	assert.Equal(t, Status{State: StateDisconnected, Reason: first}, c.load())
	assert.Equal(t, "disconnected(first)", c.load().String())

	// 终态不能回到 Connected
	assert.False(t, c.connect())
	select {
	case <-c.done:
	default:
		t.Fatal("done should be closed")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.URL = "ws://127.0.0.1:3001"
		return c
	}
	require.NoError(t, valid().Validate())
	assert.Equal(t, 32, valid().QueueSize)

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty url", func(c *Config) { c.URL = "" }},
		{"http scheme", func(c *Config) { c.URL = "http://127.0.0.1" }},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }},
		{"pong not after ping", func(c *Config) { c.PongWait = c.PingInterval }},
		{"zero write wait", func(c *Config) { c.WriteWait = 0 }},
		{"negative message size", func(c *Config) { c.MaxMessageSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			assert.ErrorIs(t, c.Validate(), errors.ErrInvalidConfig)
		})
	}
}

func TestConfigHeader(t *testing.T) {
	c := DefaultConfig()
	assert.Empty(t, c.header().Get("Authorization"))
	WithAccessToken("abc")(c)
	assert.Equal(t, "Bearer abc", c.header().Get("Authorization"))
}

func TestEventBus(t *testing.T) {
	eb := NewEventBus(2)

	var got atomic.Int32
	eb.Subscribe(EventConnected, func(e Event) {
		assert.False(t, e.Time.IsZero())
		got.Add(1)
	})
	eb.Publish(Event{Type: EventConnected})
	eb.Publish(Event{Type: EventDisconnected}) // 无订阅者
	eb.Close()
	assert.Equal(t, int32(1), got.Load())

	// 关闭后发布被忽略，重复关闭安全
	eb.Publish(Event{Type: EventConnected})
	eb.Close()
	assert.Equal(t, int32(1), got.Load())
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg, "")
	require.NoError(t, err)

	m.SetConnected(true)
	m.RecordCall("send_msg", OutcomeOK, 10*time.Millisecond)
	m.RecordCall("send_msg", OutcomeTimeout, CallTimeout)
	m.IncrementEventCount(onebot.EventGroupMessage)
	m.RecordHandler("echo", "echo", true, nil, time.Millisecond)
	m.RecordHandler("echo", "echo", false, stderrors.New("x"), time.Millisecond)
	m.IncrementDroppedResponses()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("send_msg", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("send_msg", OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(onebot.EventGroupMessage)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlers.WithLabelValues("echo", "handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlers.WithLabelValues("echo", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedResponses))

	// 同一个 Registerer 重复注册失败
	_, err = NewPrometheusMetrics(reg, "")
	assert.Error(t, err)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, outcomeOf(&onebot.Response{Status: "ok"}, nil))
	assert.Equal(t, OutcomeFailed, outcomeOf(&onebot.Response{Status: "failed"}, nil))
	assert.Equal(t, OutcomeTimeout, outcomeOf(nil, errors.ErrTimeout))
	assert.Equal(t, OutcomeStatus, outcomeOf(nil, ErrNotConnected))
	assert.Equal(t, OutcomeError, outcomeOf(nil, ErrConnectionClosed))
}
