package onebot

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tokmz/qibot/pkg/errors"
)

// Event 入站事件，封闭集合：*GroupMessage、*PrivateMessage、*LifeCycle、*HeartBeat
type Event interface {
	// Name 事件名称，形如 message.group、meta_event.heartbeat
	Name() string
	event()
}

// 事件名称
const (
	EventGroupMessage   = "message.group"
	EventPrivateMessage = "message.private"
	EventLifeCycle      = "meta_event.lifecycle"
	EventHeartBeat      = "meta_event.heartbeat"
)

// Header 所有事件的公共字段
type Header struct {
	Time     int64  `json:"time"`
	SelfID   int64  `json:"self_id"`
	PostType string `json:"post_type"`
}

// Sender 发送人信息
type Sender struct {
	UserID   int64  `json:"user_id,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Card     string `json:"card,omitempty"`
	Sex      string `json:"sex,omitempty"`
	Age      int    `json:"age,omitempty"`
	Area     string `json:"area,omitempty"`
	Level    string `json:"level,omitempty"`
	Role     string `json:"role,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Anonymous 匿名信息
type Anonymous struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// GroupMessage 群消息
type GroupMessage struct {
	Header
	MessageType string     `json:"message_type"`
	SubType     string     `json:"sub_type"`
	MessageID   int64      `json:"message_id"`
	GroupID     int64      `json:"group_id"`
	UserID      int64      `json:"user_id"`
	Anonymous   *Anonymous `json:"anonymous,omitempty"`
	Message     Message    `json:"message"`
	RawMessage  string     `json:"raw_message"`
	Font        int        `json:"font"`
	Sender      Sender     `json:"sender"`
}

// PrivateMessage 私聊消息
type PrivateMessage struct {
	Header
	MessageType string  `json:"message_type"`
	SubType     string  `json:"sub_type"`
	MessageID   int64   `json:"message_id"`
	UserID      int64   `json:"user_id"`
	Message     Message `json:"message"`
	RawMessage  string  `json:"raw_message"`
	Font        int     `json:"font"`
	Sender      Sender  `json:"sender"`
}

// LifeCycle 生命周期元事件
type LifeCycle struct {
	Header
	MetaEventType string `json:"meta_event_type"`
	SubType       string `json:"sub_type"`
}

// HeartBeat 心跳元事件
type HeartBeat struct {
	Header
	MetaEventType string          `json:"meta_event_type"`
	Status        json.RawMessage `json:"status"`
	Interval      int64           `json:"interval"`
}

func (*GroupMessage) Name() string   { return EventGroupMessage }
func (*PrivateMessage) Name() string { return EventPrivateMessage }
func (*LifeCycle) Name() string      { return EventLifeCycle }
func (*HeartBeat) Name() string      { return EventHeartBeat }

func (*GroupMessage) event()   {}
func (*PrivateMessage) event() {}
func (*LifeCycle) event()      {}
func (*HeartBeat) event()      {}

// FrameKind 入站帧分类
type FrameKind int

const (
	FrameInvalid FrameKind = iota
	FrameResponse
	FrameEvent
)

// Classify 带 echo 字段的是响应，其余按事件处理
func Classify(data []byte) FrameKind {
	if !gjson.ValidBytes(data) {
		return FrameInvalid
	}
	if gjson.GetBytes(data, "echo").Exists() {
		return FrameResponse
	}
	return FrameEvent
}

// DecodeEvent 按群消息、私聊消息、生命周期、心跳的顺序匹配
func DecodeEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.ErrUnrecognizedPayload.WithMessage("onebot: invalid json")
	}
	fields := gjson.GetManyBytes(data, "post_type", "message_type", "meta_event_type", "group_id", "user_id")
	postType, messageType, metaType := fields[0].String(), fields[1].String(), fields[2].String()
	hasGroup, hasUser := fields[3].Exists(), fields[4].Exists()

	var ev Event
	switch {
	case postType == "message" && messageType == MessageTypeGroup && hasGroup && hasUser:
		ev = &GroupMessage{}
	case postType == "message" && messageType == MessageTypePrivate && hasUser:
		ev = &PrivateMessage{}
	case postType == "meta_event" && metaType == "lifecycle":
		ev = &LifeCycle{}
	case postType == "meta_event" && metaType == "heartbeat":
		ev = &HeartBeat{}
	default:
		return nil, errors.ErrUnrecognizedPayload.WithMessage("onebot: unknown event, post_type=" + postType)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, errors.ErrUnrecognizedPayload.WithError(err)
	}
	return ev, nil
}

// MessageOf 返回消息事件的内容
func MessageOf(ev Event) (Message, bool) {
	switch e := ev.(type) {
	case *GroupMessage:
		return e.Message, true
	case *PrivateMessage:
		return e.Message, true
	}
	return Message{}, false
}

// PlainText 消息事件的纯文本投影，非消息事件返回空串
func PlainText(ev Event) string {
	msg, _ := MessageOf(ev)
	return msg.PlainText()
}

// SenderOf 返回消息事件的发送人
func SenderOf(ev Event) (*Sender, bool) {
	switch e := ev.(type) {
	case *GroupMessage:
		return &e.Sender, true
	case *PrivateMessage:
		return &e.Sender, true
	}
	return nil, false
}

// UserIDOf 消息事件的 user_id
func UserIDOf(ev Event) (int64, bool) {
	switch e := ev.(type) {
	case *GroupMessage:
		return e.UserID, true
	case *PrivateMessage:
		return e.UserID, true
	}
	return 0, false
}

// GroupIDOf 群消息的 group_id
func GroupIDOf(ev Event) (int64, bool) {
	if e, ok := ev.(*GroupMessage); ok {
		return e.GroupID, true
	}
	return 0, false
}

// MessageIDOf 消息事件的 message_id
func MessageIDOf(ev Event) (int64, bool) {
	switch e := ev.(type) {
	case *GroupMessage:
		return e.MessageID, true
	case *PrivateMessage:
		return e.MessageID, true
	}
	return 0, false
}

// NicknameOf 发送人昵称，缺省为空串
func NicknameOf(ev Event) string {
	if s, ok := SenderOf(ev); ok {
		return s.Nickname
	}
	return ""
}

var echoFallback atomic.Int64

// NewEcho 生成 echo，右移 16 位避免对端按 float64 解析时丢失精度
func NewEcho() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// 降级到时间戳 + 计数器
		return (time.Now().UnixNano() >> 16) + echoFallback.Add(1)
	}
	return int64(binary.BigEndian.Uint64(b[:]) >> 16)
}
