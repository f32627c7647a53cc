package chain

import (
	"context"
	"strconv"
	"strings"

	"github.com/tokmz/qibot/pkg/caller"
	"github.com/tokmz/qibot/pkg/errors"
	"github.com/tokmz/qibot/pkg/onebot"
	"github.com/tokmz/qibot/utils/pointer"
)

// ErrNoTarget 事件不是消息事件，无法确定回复对象
var ErrNoTarget = errors.ErrStatus.WithMessage("chain: event has no reply target")

// Context 单次分发的只读上下文：调用句柄、触发事件、插件列表
// 每个事件新建一个，分发结束后丢弃
type Context struct {
	*caller.API
	Event   onebot.Event
	Plugins []*Plugin
}

// NewContext 创建上下文
func NewContext(c caller.Caller, ev onebot.Event, plugins []*Plugin) *Context {
	return &Context{
		API:     caller.New(c),
		Event:   ev,
		Plugins: plugins,
	}
}

// PlainText 触发事件的纯文本投影（去除首尾空白）
func (c *Context) PlainText() string {
	return strings.TrimSpace(onebot.PlainText(c.Event))
}

// Args 去掉命令前缀后的参数文本
func (c *Context) Args(command string) string {
	return strings.TrimSpace(strings.TrimPrefix(c.PlainText(), command))
}

// target 群消息回复到群，私聊回复到用户
func (c *Context) target() (messageType string, userID, groupID *int64, err error) {
	switch e := c.Event.(type) {
	case *onebot.GroupMessage:
		return onebot.MessageTypeGroup, nil, pointer.Of(e.GroupID), nil
	case *onebot.PrivateMessage:
		return onebot.MessageTypePrivate, pointer.Of(e.UserID), nil, nil
	}
	return "", nil, nil, ErrNoTarget
}

// Send 发送纯文本
func (c *Context) Send(ctx context.Context, text string) (*onebot.SendMsgResult, error) {
	return c.SendMessage(ctx, onebot.TextMessage(text))
}

// SendContent 发送消息段
func (c *Context) SendContent(ctx context.Context, segments ...onebot.Segment) (*onebot.SendMsgResult, error) {
	return c.SendMessage(ctx, onebot.SegmentMessage(segments...))
}

// SendMessage 发送任意消息到事件来源
func (c *Context) SendMessage(ctx context.Context, msg onebot.Message) (*onebot.SendMsgResult, error) {
	messageType, userID, groupID, err := c.target()
	if err != nil {
		return nil, err
	}
	return c.SendMsg(ctx, onebot.SendMsgParams{
		MessageType: messageType,
		UserID:      userID,
		GroupID:     groupID,
		Message:     msg,
		AutoEscape:  true,
	})
}

// Reply 回复触发消息：reply 段 + 文本
func (c *Context) Reply(ctx context.Context, text string) (*onebot.SendMsgResult, error) {
	return c.ReplyContent(ctx, onebot.Text(text))
}

// ReplyContent 回复触发消息：reply 段 + 给定消息段
func (c *Context) ReplyContent(ctx context.Context, segments ...onebot.Segment) (*onebot.SendMsgResult, error) {
	messageID, ok := onebot.MessageIDOf(c.Event)
	if !ok {
		return nil, ErrNoTarget
	}
	all := make([]onebot.Segment, 0, len(segments)+1)
	all = append(all, onebot.Reply(strconv.FormatInt(messageID, 10)))
	all = append(all, segments...)
	return c.SendContent(ctx, all...)
}

// SetReaction 对触发消息添加表情回应
func (c *Context) SetReaction(ctx context.Context, emojiID int64) error {
	messageID, ok := onebot.MessageIDOf(c.Event)
	if !ok {
		return ErrNoTarget
	}
	return c.SetMsgEmojiLike(ctx, messageID, emojiID)
}

// SendForward 以合并转发发送多段文本
func (c *Context) SendForward(ctx context.Context, texts ...string) (*onebot.SendMsgResult, error) {
	msgs := make([]onebot.Message, len(texts))
	for i, text := range texts {
		msgs[i] = onebot.TextMessage(text)
	}
	return c.SendForwardContent(ctx, msgs...)
}

// SendForwardContent 以合并转发发送多条消息，节点署名为触发消息的发送人
func (c *Context) SendForwardContent(ctx context.Context, msgs ...onebot.Message) (*onebot.SendMsgResult, error) {
	messageType, userID, groupID, err := c.target()
	if err != nil {
		return nil, err
	}
	uid, _ := onebot.UserIDOf(c.Event)
	nickname := onebot.NicknameOf(c.Event)

	nodes := make([]onebot.Segment, len(msgs))
	for i, msg := range msgs {
		nodes[i] = onebot.Node(strconv.FormatInt(uid, 10), nickname, msg)
	}
	return c.SendForwardMsg(ctx, onebot.SendForwardMsgParams{
		MessageType: messageType,
		UserID:      userID,
		GroupID:     groupID,
		Messages:    onebot.SegmentMessage(nodes...),
	})
}
