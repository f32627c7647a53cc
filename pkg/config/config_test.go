package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/errors"
)

const testYAML = `
bot:
  url: ws://127.0.0.1:6700
  access_token: secret
ws:
  ping_interval: 10s
  pong_wait: 30s
log:
  level: debug
plugins:
  enabled: [echo, help]
  bonus:
    min: 5
    max: 50
  hackernews:
    cron: "0 9 * * *"
    groups: [123456, 654321]
`

func writeTestConfig(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", testYAML)

	c := New(WithConfigFile(path))
	s, err := c.Load()
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, "ws://127.0.0.1:6700", s.Bot.URL)
	assert.Equal(t, "secret", s.Bot.AccessToken)
	assert.Equal(t, 10*time.Second, s.WS.PingInterval)
	assert.Equal(t, 30*time.Second, s.WS.PongWait)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, 5, s.Plugins.Bonus.Min)
	assert.Equal(t, []int64{123456, 654321}, s.Plugins.HackerNews.Groups)
	assert.Same(t, s, c.Settings())
	assert.Equal(t, path, c.File())
}

func TestDefaults(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", "bot:\n  url: ws://localhost:6700\n")

	s, err := New(WithConfigFile(path)).Load()
	require.NoError(t, err)

	assert.True(t, s.Bot.Banner)
	assert.True(t, s.Bot.HandleSignals)
	assert.Equal(t, 30*time.Second, s.WS.PingInterval)
	assert.Equal(t, 90*time.Second, s.WS.PongWait)
	assert.Equal(t, int64(16<<20), s.WS.MaxMessageSize)
	assert.Equal(t, 32, s.WS.QueueSize)
	assert.Equal(t, "memory", s.Cache.Driver)
	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.Equal(t, 1, s.Plugins.Bonus.Min)
	assert.Equal(t, 100, s.Plugins.Bonus.Max)
	assert.Equal(t, time.Hour, s.Plugins.URLDetail.TTL)
	assert.Empty(t, s.Plugins.URLDetail.YouTubeKey)
	assert.Equal(t, ":8081", s.Admin.Addr)
	assert.NoError(t, s.Validate())
}

func TestSearchByName(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, "bot.yaml", testYAML)

	s, err := New(WithConfigName("bot"), WithConfigPaths(dir)).Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", s.Bot.AccessToken)
}

func TestSearchMissingUsesDefaults(t *testing.T) {
	t.Setenv("QIBOT_BOT_URL", "ws://env:6700")

	s, err := New(WithConfigPaths(t.TempDir())).Load()
	require.NoError(t, err)
	assert.Equal(t, "ws://env:6700", s.Bot.URL)
}

func TestConfigFileNotFound(t *testing.T) {
	_, err := New(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))).Load()
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestConfigReadFailed(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", "bot: [unclosed")
	_, err := New(WithConfigFile(path)).Load()
	assert.ErrorIs(t, err, ErrConfigReadFailed)
}

func TestEnvOverride(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", testYAML)
	t.Setenv("QIBOT_BOT_ACCESS_TOKEN", "from-env")
	t.Setenv("QIBOT_LOG_LEVEL", "warn")

	s, err := New(WithConfigFile(path)).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Bot.AccessToken)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Settings {
		path := writeTestConfig(t, t.TempDir(), "qibot.yaml", testYAML)
		s, err := New(WithConfigFile(path)).Load()
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"missing url", func(s *Settings) { s.Bot.URL = "" }},
		{"http url", func(s *Settings) { s.Bot.URL = "http://127.0.0.1:6700" }},
		{"pong wait", func(s *Settings) { s.WS.PongWait = s.WS.PingInterval }},
		{"cache driver", func(s *Settings) { s.Cache.Driver = "memcached" }},
		{"kafka brokers", func(s *Settings) { s.MQ.Driver = "kafka" }},
		{"rabbitmq url", func(s *Settings) { s.MQ.Driver = "rabbitmq" }},
		{"mq driver", func(s *Settings) { s.MQ.Driver = "nats" }},
		{"bonus range", func(s *Settings) { s.Plugins.Bonus.Max = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.modify(s)
			assert.ErrorIs(t, s.Validate(), errors.ErrInvalidConfig)
		})
	}
}

func TestPluginEnabled(t *testing.T) {
	s := &Settings{}
	assert.True(t, s.PluginEnabled("anything"))

	s.Plugins.Enabled = []string{"echo", "help"}
	assert.True(t, s.PluginEnabled("echo"))
	assert.False(t, s.PluginEnabled("bonus"))
}

func TestGenericGet(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", testYAML)
	c := New(WithConfigFile(path))
	_, err := c.Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", Get[string](c, "bot.access_token"))
	assert.Equal(t, 0, Get[int](c, "bot.access_token"))
	assert.Equal(t, "debug", c.GetString("log.level"))
	assert.Contains(t, c.AllSettings(), "bot")
}

func TestSetAndReload(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", testYAML)
	c := New(WithConfigFile(path))
	_, err := c.Load()
	require.NoError(t, err)

	c.Set("log.level", "error")
	s, err := c.Reload()
	require.NoError(t, err)
	assert.Equal(t, "error", s.Log.Level)
	assert.Same(t, s, c.Settings())
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "qibot.yaml", testYAML)

	var (
		mu    sync.Mutex
		level string
	)
	c := New(
		WithConfigFile(path),
		WithAutoWatch(true),
		WithOnChange(func(s *Settings) {
			mu.Lock()
			level = s.Log.Level
			mu.Unlock()
		}),
	)
	_, err := c.Load()
	require.NoError(t, err)
	defer c.Close()

	time.Sleep(100 * time.Millisecond)
	writeTestConfig(t, dir, "qibot.yaml", "bot:\n  url: ws://127.0.0.1:6700\nlog:\n  level: error\n")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return level == "error"
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, "error", c.Settings().Log.Level)
}

func TestStartStopWatch(t *testing.T) {
	c := New(WithConfigPaths(t.TempDir()))
	_, err := c.Load()
	require.NoError(t, err)
	assert.ErrorIs(t, c.StartWatch(), ErrConfigNotFound)

	path := writeTestConfig(t, t.TempDir(), "qibot.yaml", testYAML)
	c = New(WithConfigFile(path))
	_, err = c.Load()
	require.NoError(t, err)
	require.NoError(t, c.StartWatch())
	require.NoError(t, c.StartWatch())
	c.StopWatch()
	assert.False(t, c.watching)
}
