package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/pkg/ws"
)

type fakeSource struct {
	status  ws.Status
	info    *onebot.GetLoginInfoResult
	plugins []*chain.Plugin
}

func (f *fakeSource) Status() ws.Status { return f.status }
func (f *fakeSource) LoginInfo() *onebot.GetLoginInfoResult { return f.info }
func (f *fakeSource) Plugins() []*chain.Plugin { return f.plugins }
func (f *fakeSource) Unions() []*chain.MatchUnion { return chain.Flatten(f.plugins...) }

func newSource() *fakeSource {
	noop := func(context.Context, *chain.Context) (bool, error) { return false, nil }
	echo := chain.NewPlugin("echo", "复读文本").
		On("#echo", 0, chain.NewMatcher(chain.OnMessage(), chain.OnPrefix("#echo")), noop)
	help := chain.NewPlugin("help", "帮助").
		On("#help", 10, chain.NewMatcher(chain.OnExactMatch("#help")), noop)
	return &fakeSource{
		status:  ws.Status{State: ws.StateConnected},
		info:    &onebot.GetLoginInfoResult{UserID: 10001, Nickname: "qibot"},
		plugins: []*chain.Plugin{echo, help},
	}
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthz(t *testing.T) {
	src := newSource()
	s := New(src)

	w, resp := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Message)

	src.status = ws.Status{State: ws.StateDisconnected}
	w, resp = get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "disconnected", resp.Message)
}

func TestStatus(t *testing.T) {
	s := New(newSource())
	w, _ := get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data statusView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body.Data.State)
	require.NotNil(t, body.Data.LoginInfo)
	assert.Equal(t, int64(10001), body.Data.LoginInfo.UserID)
}

func TestPluginsAndUnions(t *testing.T) {
	s := New(newSource())

	w, _ := get(t, s.Handler(), "/plugins")
	var plugins struct {
		Data struct {
			List  []pluginView `json:"list"`
			Total int          `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plugins))
	assert.Equal(t, 2, plugins.Data.Total)
	assert.Equal(t, "echo", plugins.Data.List[0].Name)
	assert.Equal(t, "on_message & on_prefix(#echo)", plugins.Data.List[0].Unions[0].Matcher)

	w, _ = get(t, s.Handler(), "/unions")
	var unions struct {
		Data struct {
			List []unionView `json:"list"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unions))
	require.Len(t, unions.Data.List, 2)
	// 按优先级降序
	assert.Equal(t, "#help", unions.Data.List[0].Description)
	assert.Equal(t, "#echo", unions.Data.List[1].Description)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := ws.NewPrometheusMetrics(reg, "qibot")
	require.NoError(t, err)

	s := New(newSource(), WithGatherer(reg))
	w, _ := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qibot_ws_connected")

	// 未配置 Gatherer 时不注册
	w, _ = get(t, New(newSource()).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(newSource())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
