// Package caller 定义远程动作调用接口，以及基于通用调用的类型化封装。
package caller

import (
	"context"

	"github.com/tokmz/qibot/pkg/onebot"
)

// Caller 远程动作调用
// 实现方负责分配 echo、等待对应响应并处理超时与断连
type Caller interface {
	Call(ctx context.Context, req onebot.Request) (*onebot.Response, error)
}

// Func 函数式 Caller
type Func func(ctx context.Context, req onebot.Request) (*onebot.Response, error)

// Call 实现 Caller 接口
func (f Func) Call(ctx context.Context, req onebot.Request) (*onebot.Response, error) {
	return f(ctx, req)
}

// API 每个动作一个类型化封装：序列化参数、调用 Call、按期望结构解析
type API struct {
	Caller
}

// New 创建 API
func New(c Caller) *API {
	return &API{Caller: c}
}

// call 发起调用并把对端的 failed 状态转换为错误
func (a *API) call(ctx context.Context, action onebot.Action, params any) (*onebot.Response, error) {
	resp, err := a.Call(ctx, onebot.NewRequest(action, params))
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetLoginInfo 获取登录号信息
func (a *API) GetLoginInfo(ctx context.Context) (*onebot.GetLoginInfoResult, error) {
	resp, err := a.call(ctx, onebot.ActionGetLoginInfo, nil)
	if err != nil {
		return nil, err
	}
	return resp.LoginInfo()
}

// SendPrivateMsg 发送私聊消息
func (a *API) SendPrivateMsg(ctx context.Context, params onebot.SendPrivateMsgParams) (*onebot.SendMsgResult, error) {
	resp, err := a.call(ctx, onebot.ActionSendPrivateMsg, params)
	if err != nil {
		return nil, err
	}
	return resp.SendMsg()
}

// SendGroupMsg 发送群消息
func (a *API) SendGroupMsg(ctx context.Context, params onebot.SendGroupMsgParams) (*onebot.SendMsgResult, error) {
	resp, err := a.call(ctx, onebot.ActionSendGroupMsg, params)
	if err != nil {
		return nil, err
	}
	return resp.SendMsg()
}

// SendMsg 发送消息
func (a *API) SendMsg(ctx context.Context, params onebot.SendMsgParams) (*onebot.SendMsgResult, error) {
	resp, err := a.call(ctx, onebot.ActionSendMsg, params)
	if err != nil {
		return nil, err
	}
	return resp.SendMsg()
}

// DeleteMsg 撤回消息
func (a *API) DeleteMsg(ctx context.Context, messageID int64) error {
	_, err := a.call(ctx, onebot.ActionDeleteMsg, onebot.DeleteMsgParams{MessageID: messageID})
	return err
}

// GetMsg 获取消息
func (a *API) GetMsg(ctx context.Context, messageID int64) (*onebot.GetMsgResult, error) {
	resp, err := a.call(ctx, onebot.ActionGetMsg, onebot.GetMsgParams{MessageID: messageID})
	if err != nil {
		return nil, err
	}
	return resp.GetMsg()
}

// GetForwardMsg 获取合并转发消息
func (a *API) GetForwardMsg(ctx context.Context, id string) (*onebot.GetForwardMsgResult, error) {
	resp, err := a.call(ctx, onebot.ActionGetForwardMsg, onebot.GetForwardMsgParams{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.ForwardMsg()
}

// SetMsgEmojiLike 表情回应
func (a *API) SetMsgEmojiLike(ctx context.Context, messageID, emojiID int64) error {
	_, err := a.call(ctx, onebot.ActionSetMsgEmojiLike, onebot.SetMsgEmojiLikeParams{
		MessageID: messageID,
		EmojiID:   emojiID,
	})
	return err
}

// SendForwardMsg 发送合并转发消息
func (a *API) SendForwardMsg(ctx context.Context, params onebot.SendForwardMsgParams) (*onebot.SendMsgResult, error) {
	resp, err := a.call(ctx, onebot.ActionSendForwardMsg, params)
	if err != nil {
		return nil, err
	}
	return resp.SendMsg()
}
