package selector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/qibot/pkg/chain/chaintest"
	"github.com/tokmz/qibot/pkg/onebot"
)

func TestChoices(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Choices(" a / b/c "))
	assert.Equal(t, []string{"火锅"}, Choices("//火锅/ /"))
	assert.Empty(t, Choices("  "))
}

func TestSelect(t *testing.T) {
	rec := &chaintest.Recorder{}
	last := func(n int) int { return n - 1 }

	ev := chaintest.GroupMessage(1, 2, "#select 面条 / 米饭 / 饺子")
	require.True(t, chaintest.Dispatch(context.Background(), rec, ev, New(last)))

	sent := rec.Sent()
	require.Len(t, sent, 1)
	segs := sent[0].Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, onebot.SegmentReply, segs[0].Type)
	assert.Equal(t, "饺子", sent[0].PlainText())
}

func TestSelectNoChoices(t *testing.T) {
	rec := &chaintest.Recorder{}
	assert.True(t, chaintest.Dispatch(context.Background(), rec, chaintest.PrivateMessage(2, "#select //"), New(nil)))
	assert.Empty(t, rec.Requests())
}

func TestSelectRandom(t *testing.T) {
	rec := &chaintest.Recorder{}
	p := New(nil)
	for range 20 {
		chaintest.Dispatch(context.Background(), rec, chaintest.GroupMessage(1, 2, "#select a/b"), p)
	}
	for _, text := range rec.Texts() {
		assert.Contains(t, []string{"a", "b"}, text)
	}
}
