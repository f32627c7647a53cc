package onebot

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tokmz/qibot/pkg/errors"
)

// Shape 响应数据的结构
type Shape string

const (
	ShapeLoginInfo  Shape = "get_login_info"
	ShapeSendMsg    Shape = "send_msg"
	ShapeGetMsg     Shape = "get_msg"
	ShapeForwardMsg Shape = "get_forward_msg"
	ShapeFallback   Shape = "fallback"
)

// shapeFields 每种结构的必需字段，按尝试顺序排列
var shapeFields = []struct {
	shape  Shape
	fields []string
}{
	{ShapeLoginInfo, []string{"user_id", "nickname"}},
	{ShapeSendMsg, []string{"message_id"}},
	{ShapeGetMsg, []string{"time", "message_type", "message_id", "real_id", "sender", "message"}},
	{ShapeForwardMsg, []string{"message"}},
}

// Response 入站响应帧
type Response struct {
	Echo    int64           `json:"echo"`
	Status  string          `json:"status,omitempty"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Wording string          `json:"wording,omitempty"`
}

// DecodeResponse 解析响应帧
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.ErrUnrecognizedPayload.WithError(err)
	}
	return &resp, nil
}

// Failed 对端是否报告失败
func (r *Response) Failed() bool {
	return r.Status == "failed"
}

// Err 对端报告失败时返回 ErrActionFailed
func (r *Response) Err() error {
	if !r.Failed() {
		return nil
	}
	msg := r.Wording
	if msg == "" {
		msg = r.Message
	}
	if msg == "" {
		msg = errors.ErrActionFailed.Message
	}
	return errors.ErrActionFailed.WithMessage(msg)
}

// Shape 依次尝试已知结构，都不满足时返回 ShapeFallback
func (r *Response) Shape() Shape {
	if !r.isObject() {
		return ShapeFallback
	}
	for _, s := range shapeFields {
		if r.has(s.fields...) {
			return s.shape
		}
	}
	return ShapeFallback
}

// LoginInfo 按 get_login_info 结构解析
func (r *Response) LoginInfo() (*GetLoginInfoResult, error) {
	var out GetLoginInfoResult
	if err := r.decode(ShapeLoginInfo, &out, "user_id", "nickname"); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMsg 按 send_msg 结构解析
func (r *Response) SendMsg() (*SendMsgResult, error) {
	var out SendMsgResult
	if err := r.decode(ShapeSendMsg, &out, "message_id"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMsg 按 get_msg 结构解析
func (r *Response) GetMsg() (*GetMsgResult, error) {
	var out GetMsgResult
	if err := r.decode(ShapeGetMsg, &out, "message_type", "message_id", "sender", "message"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForwardMsg 按 get_forward_msg 结构解析
func (r *Response) ForwardMsg() (*GetForwardMsgResult, error) {
	var out GetForwardMsgResult
	if err := r.decode(ShapeForwardMsg, &out, "message"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Raw 未知结构的透传值
func (r *Response) Raw() any {
	if len(r.Data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return nil
	}
	return v
}

func (r *Response) isObject() bool {
	return len(r.Data) > 0 && gjson.ParseBytes(r.Data).IsObject()
}

func (r *Response) has(fields ...string) bool {
	res := gjson.GetManyBytes(r.Data, fields...)
	for _, f := range res {
		if !f.Exists() {
			return false
		}
	}
	return true
}

func (r *Response) decode(want Shape, out any, required ...string) error {
	if !r.isObject() || !r.has(required...) {
		return errors.ErrResponseShape.WithMessage(
			"onebot: response shape mismatch, want " + string(want) + ", got " + string(r.Shape()))
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return errors.ErrResponseShape.WithError(err)
	}
	return nil
}
