package wte

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/chain/chaintest"
	"github.com/tokmz/qibot/pkg/onebot"
)

func menuDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("img:"+f), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))
	return dir
}

func TestFoods(t *testing.T) {
	m := NewMenu(menuDir(t, "火锅.jpg", "拉面.PNG", "readme.txt"))
	foods, err := m.Foods()
	require.NoError(t, err)

	var names []string
	for _, f := range foods {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"火锅", "拉面"}, names)
}

func TestWTE(t *testing.T) {
	m := NewMenu(menuDir(t, "火锅.jpg"))
	rec := &chaintest.Recorder{}
	require.True(t, chaintest.Dispatch(context.Background(), rec, chaintest.GroupMessage(1, 2, "#wte"), New(m, nil)))

	sent := rec.Sent()
	require.Len(t, sent, 1)
	segs := sent[0].Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, onebot.SegmentReply, segs[0].Type)
	assert.Equal(t, "今天吃火锅！", segs[1].String("text"))
	assert.Equal(t, onebot.SegmentImage, segs[2].Type)
	assert.Equal(t, "base64://"+base64.StdEncoding.EncodeToString([]byte("img:火锅.jpg")), segs[2].String("file"))
}

func TestWTEFailure(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{"missing dir", filepath.Join(t.TempDir(), "nope")},
		{"empty dir", menuDir(t, "readme.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &chaintest.Recorder{}
			require.True(t, chaintest.Dispatch(context.Background(), rec, chaintest.PrivateMessage(2, "#wte"), New(NewMenu(tt.dir), nil)))
			assert.Equal(t, []string{"出错啦，请稍后再试"}, rec.Texts())
		})
	}

	_, _, err := NewMenu(menuDir(t)).Pick()
	assert.ErrorIs(t, err, ErrNoFood)
}
