package onebot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SegmentType 消息段类型
type SegmentType string

const (
	SegmentText      SegmentType = "text"
	SegmentFace      SegmentType = "face"
	SegmentImage     SegmentType = "image"
	SegmentRecord    SegmentType = "record"
	SegmentVideo     SegmentType = "video"
	SegmentAt        SegmentType = "at"
	SegmentRps       SegmentType = "rps"
	SegmentDice      SegmentType = "dice"
	SegmentShake     SegmentType = "shake"
	SegmentPoke      SegmentType = "poke"
	SegmentAnonymous SegmentType = "anonymous"
	SegmentShare     SegmentType = "share"
	SegmentContact   SegmentType = "contact"
	SegmentLocation  SegmentType = "location"
	SegmentMusic     SegmentType = "music"
	SegmentReply     SegmentType = "reply"
	SegmentForward   SegmentType = "forward"
	SegmentNode      SegmentType = "node"
	SegmentXML       SegmentType = "xml"
	SegmentJSON      SegmentType = "json"
)

// Segment 消息段 {"type": ..., "data": {...}}
type Segment struct {
	Type SegmentType    `json:"type"`
	Data map[string]any `json:"data"`
}

// NewSegment 创建任意类型的消息段
func NewSegment(typ SegmentType, data map[string]any) Segment {
	if data == nil {
		data = map[string]any{}
	}
	return Segment{Type: typ, Data: data}
}

// Text 纯文本
func Text(text string) Segment {
	return NewSegment(SegmentText, map[string]any{"text": text})
}

// Face QQ 表情
func Face(id string) Segment {
	return NewSegment(SegmentFace, map[string]any{"id": id})
}

// Image 图片，file 支持 file://、http(s)://、base64://
func Image(file string) Segment {
	return NewSegment(SegmentImage, map[string]any{"file": file})
}

// Record 语音
func Record(file string) Segment {
	return NewSegment(SegmentRecord, map[string]any{"file": file})
}

// Video 短视频
func Video(file string) Segment {
	return NewSegment(SegmentVideo, map[string]any{"file": file})
}

// At @某人，qq 为 "all" 时表示全体成员
func At(qq string) Segment {
	return NewSegment(SegmentAt, map[string]any{"qq": qq})
}

// Reply 回复指定消息
func Reply(id string) Segment {
	return NewSegment(SegmentReply, map[string]any{"id": id})
}

// Forward 合并转发引用
func Forward(id string) Segment {
	return NewSegment(SegmentForward, map[string]any{"id": id})
}

// Node 合并转发自定义节点
func Node(userID, nickname string, content Message) Segment {
	return NewSegment(SegmentNode, map[string]any{
		"user_id":  userID,
		"nickname": nickname,
		"content":  content,
	})
}

// NodeRef 引用已有消息的转发节点
func NodeRef(id string) Segment {
	return NewSegment(SegmentNode, map[string]any{"id": id})
}

// String 返回 data 中的字符串字段，数字会被格式化
func (s Segment) String(key string) string {
	switch v := s.Data[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Message 消息内容，字符串或消息段数组
type Message struct {
	text     string
	segments []Segment
}

// TextMessage 字符串形式的消息
func TextMessage(text string) Message {
	return Message{text: text}
}

// SegmentMessage 消息段数组形式的消息
func SegmentMessage(segments ...Segment) Message {
	if segments == nil {
		segments = []Segment{}
	}
	return Message{segments: segments}
}

// IsText 是否为字符串形式
func (m Message) IsText() bool {
	return m.segments == nil
}

// Segments 返回消息段，字符串形式会被视为单个 text 段
func (m Message) Segments() []Segment {
	if m.IsText() {
		if m.text == "" {
			return nil
		}
		return []Segment{Text(m.text)}
	}
	return m.segments
}

// PlainText 纯文本投影：只拼接 text 段，忽略其它类型
func (m Message) PlainText() string {
	if m.IsText() {
		return m.text
	}
	var b strings.Builder
	for _, seg := range m.segments {
		if seg.Type == SegmentText {
			b.WriteString(seg.String("text"))
		}
	}
	return b.String()
}

// OnlyOf 所有段是否都属于给定类型，字符串形式视为 text
func (m Message) OnlyOf(types ...SegmentType) bool {
	for _, seg := range m.Segments() {
		ok := false
		for _, t := range types {
			if seg.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Equal 按线上编码比较两条消息
func (m Message) Equal(other Message) bool {
	a, errA := json.Marshal(m)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// MarshalJSON 实现 json.Marshaler
func (m Message) MarshalJSON() ([]byte, error) {
	if m.IsText() {
		return json.Marshal(m.text)
	}
	return json.Marshal(m.segments)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (m *Message) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Message{}
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*m = TextMessage(text)
		return nil
	}
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return fmt.Errorf("message is neither string nor segment array: %w", err)
	}
	*m = SegmentMessage(segments...)
	return nil
}
