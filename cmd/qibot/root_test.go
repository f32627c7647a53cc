package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "qibot.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "qibot dev\n", out)
}

func TestPluginsCommand(t *testing.T) {
	file := writeConfig(t, `
bot:
  url: ws://127.0.0.1:6700
plugins:
  enabled: [echo, help]
`)
	out, err := execute(t, "plugins", "-c", file)
	require.NoError(t, err)
	assert.Regexp(t, `echo\s+enabled`, out)
	assert.Regexp(t, `bonus\s+disabled`, out)
}

func TestConfigCommand(t *testing.T) {
	file := writeConfig(t, `
bot:
  url: ws://127.0.0.1:6700
log:
  level: debug
`)
	out, err := execute(t, "config", "--validate", "--config", file)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+file)
	assert.Contains(t, out, "url: ws://127.0.0.1:6700")
	assert.Contains(t, out, "level: debug")
}

func TestConfigMissingFile(t *testing.T) {
	_, err := execute(t, "config", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestRunInvalidConfig(t *testing.T) {
	file := writeConfig(t, `
bot:
  url: http://127.0.0.1:6700
`)
	_, err := execute(t, "run", "--watch=false", "-c", file)
	assert.Error(t, err)
}
