package onebot

// Action 动作名称
type Action string

const (
	ActionGetLoginInfo    Action = "get_login_info"
	ActionSendPrivateMsg  Action = "send_private_msg"
	ActionSendGroupMsg    Action = "send_group_msg"
	ActionSendMsg         Action = "send_msg"
	ActionDeleteMsg       Action = "delete_msg"
	ActionGetMsg          Action = "get_msg"
	ActionGetForwardMsg   Action = "get_forward_msg"
	ActionSetMsgEmojiLike Action = "set_msg_emoji_like"
	ActionSendForwardMsg  Action = "send_forward_msg"
)

// 消息类型
const (
	MessageTypePrivate = "private"
	MessageTypeGroup   = "group"
)

// Request 出站请求帧
type Request struct {
	Echo   int64  `json:"echo"`
	Action Action `json:"action"`
	Params any    `json:"params,omitempty"`
}

// NewRequest 创建请求，echo 由发送方在调用时分配
func NewRequest(action Action, params any) Request {
	return Request{Action: action, Params: params}
}

// SendPrivateMsgParams 发送私聊消息
type SendPrivateMsgParams struct {
	UserID     int64   `json:"user_id"`
	Message    Message `json:"message"`
	AutoEscape bool    `json:"auto_escape"`
}

// SendGroupMsgParams 发送群消息
type SendGroupMsgParams struct {
	GroupID    int64   `json:"group_id"`
	Message    Message `json:"message"`
	AutoEscape bool    `json:"auto_escape"`
}

// SendMsgParams 发送消息，未指定 message_type 时由对端根据 *_id 判断
type SendMsgParams struct {
	MessageType string  `json:"message_type,omitempty"`
	UserID      *int64  `json:"user_id,omitempty"`
	GroupID     *int64  `json:"group_id,omitempty"`
	Message     Message `json:"message"`
	AutoEscape  bool    `json:"auto_escape"`
}

// DeleteMsgParams 撤回消息
type DeleteMsgParams struct {
	MessageID int64 `json:"message_id"`
}

// GetMsgParams 获取消息
type GetMsgParams struct {
	MessageID int64 `json:"message_id"`
}

// GetForwardMsgParams 获取合并转发消息
type GetForwardMsgParams struct {
	ID string `json:"id"`
}

// SetMsgEmojiLikeParams 表情回应
type SetMsgEmojiLikeParams struct {
	MessageID int64 `json:"message_id"`
	EmojiID   int64 `json:"emoji_id"`
}

// SendForwardMsgParams 发送合并转发消息
type SendForwardMsgParams struct {
	MessageType string  `json:"message_type,omitempty"`
	UserID      *int64  `json:"user_id,omitempty"`
	GroupID     *int64  `json:"group_id,omitempty"`
	Messages    Message `json:"messages"`
}

// GetLoginInfoResult 登录信息
type GetLoginInfoResult struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// SendMsgResult 发送消息的公共响应
type SendMsgResult struct {
	MessageID int64 `json:"message_id"`
}

// GetMsgResult 获取消息的响应
type GetMsgResult struct {
	Time        int64   `json:"time"`
	MessageType string  `json:"message_type"`
	MessageID   int64   `json:"message_id"`
	RealID      int64   `json:"real_id"`
	Sender      Sender  `json:"sender"`
	Message     Message `json:"message"`
}

// GetForwardMsgResult 获取合并转发消息的响应，段全部为 node
type GetForwardMsgResult struct {
	Message Message `json:"message"`
}
