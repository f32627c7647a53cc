package echo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokmz/qibot/pkg/chain/chaintest"
	"github.com/tokmz/qibot/pkg/onebot"
)

func TestEcho(t *testing.T) {
	tests := []struct {
		name    string
		event   onebot.Event
		handled bool
		sent    []string
	}{
		{"group", chaintest.GroupMessage(1, 2, "#echo  hello world "), true, []string{"hello world"}},
		{"private", chaintest.PrivateMessage(2, "#echo hi"), true, []string{"hi"}},
		{"empty", chaintest.GroupMessage(1, 2, "#echo   "), true, nil},
		{"not a command", chaintest.GroupMessage(1, 2, "say #echo hi"), false, nil},
		{"heartbeat", &onebot.HeartBeat{}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &chaintest.Recorder{}
			handled := chaintest.Dispatch(context.Background(), rec, tt.event, New())
			assert.Equal(t, tt.handled, handled)
			assert.Equal(t, tt.sent, rec.Texts())
		})
	}
}

func TestEchoTarget(t *testing.T) {
	rec := &chaintest.Recorder{}
	chaintest.Dispatch(context.Background(), rec, chaintest.GroupMessage(100, 2, "#echo x"), New())

	reqs := rec.Requests()
	assert.Len(t, reqs, 1)
	params := reqs[0].Params.(onebot.SendMsgParams)
	assert.Equal(t, onebot.MessageTypeGroup, params.MessageType)
	assert.Equal(t, int64(100), *params.GroupID)
	assert.True(t, params.AutoEscape)
}
