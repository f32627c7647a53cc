// Package chaintest 提供插件测试用的调用记录器和事件构造函数。
package chaintest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/utils/pointer"
)

// Recorder 记录所有请求的 Caller，send 类动作返回递增的 message_id
type Recorder struct {
	mu     sync.Mutex
	reqs   []onebot.Request
	nextID int64

	// Fail 非 nil 时对每个请求调用，返回非 nil 则该请求失败
	Fail func(req onebot.Request) error
}

var _ caller.Caller = (*Recorder)(nil)

// Call 实现 caller.Caller
func (r *Recorder) Call(_ context.Context, req onebot.Request) (*onebot.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(req); err != nil {
			return nil, err
		}
	}
	r.reqs = append(r.reqs, req)
	r.nextID++
	data := `{"message_id": ` + strconv.FormatInt(r.nextID, 10) + `}`
	return &onebot.Response{Echo: req.Echo, Status: "ok", Data: json.RawMessage(data)}, nil
}

// Requests 已记录的请求
func (r *Recorder) Requests() []onebot.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]onebot.Request(nil), r.reqs...)
}

// Sent 已发送的消息，合并转发消息按整体计一条
func (r *Recorder) Sent() []onebot.Message {
	var msgs []onebot.Message
	for _, req := range r.Requests() {
		switch p := req.Params.(type) {
		case onebot.SendMsgParams:
			msgs = append(msgs, p.Message)
		case onebot.SendGroupMsgParams:
			msgs = append(msgs, p.Message)
		case onebot.SendPrivateMsgParams:
			msgs = append(msgs, p.Message)
		case onebot.SendForwardMsgParams:
			msgs = append(msgs, p.Messages)
		}
	}
	return msgs
}

// SentTo 发往指定群的消息
func (r *Recorder) SentTo(groupID int64) []onebot.Message {
	var msgs []onebot.Message
	for _, req := range r.Requests() {
		switch p := req.Params.(type) {
		case onebot.SendMsgParams:
			if pointer.Get(p.GroupID) == groupID {
				msgs = append(msgs, p.Message)
			}
		case onebot.SendGroupMsgParams:
			if p.GroupID == groupID {
				msgs = append(msgs, p.Message)
			}
		case onebot.SendForwardMsgParams:
			if pointer.Get(p.GroupID) == groupID {
				msgs = append(msgs, p.Messages)
			}
		}
	}
	return msgs
}

// Texts 已发送消息的纯文本
func (r *Recorder) Texts() []string {
	var texts []string
	for _, msg := range r.Sent() {
		texts = append(texts, msg.PlainText())
	}
	return texts
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = nil
}

var messageID atomic.Int64

// GroupMessage 构造群文本消息
func GroupMessage(groupID, userID int64, text string) *onebot.GroupMessage {
	return GroupContent(groupID, userID, onebot.TextMessage(text))
}

// GroupContent 构造任意内容的群消息
func GroupContent(groupID, userID int64, msg onebot.Message) *onebot.GroupMessage {
	return &onebot.GroupMessage{
		Header:      onebot.Header{PostType: "message"},
		MessageType: onebot.MessageTypeGroup,
		SubType:     "normal",
		MessageID:   messageID.Add(1),
		GroupID:     groupID,
		UserID:      userID,
		Message:     msg,
		RawMessage:  msg.PlainText(),
		Sender:      onebot.Sender{UserID: userID, Nickname: "user" + strconv.FormatInt(userID, 10)},
	}
}

// PrivateMessage 构造私聊文本消息
func PrivateMessage(userID int64, text string) *onebot.PrivateMessage {
	return &onebot.PrivateMessage{
		Header:      onebot.Header{PostType: "message"},
		MessageType: onebot.MessageTypePrivate,
		SubType:     "friend",
		MessageID:   messageID.Add(1),
		UserID:      userID,
		Message:     onebot.TextMessage(text),
		RawMessage:  text,
		Sender:      onebot.Sender{UserID: userID, Nickname: "user" + strconv.FormatInt(userID, 10)},
	}
}

// Dispatch 只用给定插件分发一次事件，返回是否被处理
func Dispatch(ctx context.Context, r *Recorder, ev onebot.Event, plugins ...*chain.Plugin) bool {
	d := chain.NewDispatcher(chain.Flatten(plugins...), plugins)
	return d.Dispatch(ctx, r, ev)
}
