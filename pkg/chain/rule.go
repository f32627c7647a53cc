package chain

import (
	"strconv"
	"strings"

	"github.com/tokmz/qibot/pkg/onebot"
)

// ruleKind 规则类别，决定 IsMatch 时传入的数据
type ruleKind int

const (
	kindEventStatic ruleKind = iota // 静态整事件判断
	kindText                        // 纯文本投影判断
	kindSender                      // 发送人判断
	kindEvent                       // 动态整事件判断
)

// Rule 命名的单事件判断条件
type Rule struct {
	name   string
	kind   ruleKind
	event  func(onebot.Event) bool
	text   func(string) bool
	sender func(*onebot.Sender) bool
}

// Name 规则名称，如 on_prefix(#echo)
func (r Rule) Name() string {
	return r.name
}

// IsMatch 单条规则是否匹配
// 文本和发送人规则只对消息事件生效，其它事件一律不匹配
func (r Rule) IsMatch(ev onebot.Event) bool {
	switch r.kind {
	case kindText:
		msg, ok := onebot.MessageOf(ev)
		if !ok {
			return false
		}
		return r.text(msg.PlainText())
	case kindSender:
		sender, ok := onebot.SenderOf(ev)
		if !ok {
			return false
		}
		return r.sender(sender)
	default:
		return r.event(ev)
	}
}

// And 与另一条规则组成 Matcher
func (r Rule) And(other Rule) *Matcher {
	return NewMatcher(r, other)
}

// OnMessage 群消息或私聊消息
func OnMessage() Rule {
	return Rule{name: "on_message", kind: kindEventStatic, event: isMessage}
}

// OnGroupMessage 群消息
func OnGroupMessage() Rule {
	return Rule{name: "on_group_message", kind: kindEventStatic, event: isGroupMessage}
}

// OnPrivateMessage 私聊消息
func OnPrivateMessage() Rule {
	return Rule{name: "on_private_message", kind: kindEventStatic, event: isPrivateMessage}
}

// OnSenderID 发送人 user_id 等于给定值
func OnSenderID(userID int64) Rule {
	return Rule{
		name: "on_sender_id(" + strconv.FormatInt(userID, 10) + ")",
		kind: kindSender,
		sender: func(s *onebot.Sender) bool {
			return s.UserID == userID
		},
	}
}

// OnGroupID 群消息且群号等于给定值
func OnGroupID(groupID int64) Rule {
	return Rule{
		name: "on_group_id(" + strconv.FormatInt(groupID, 10) + ")",
		kind: kindEvent,
		event: func(ev onebot.Event) bool {
			gid, ok := onebot.GroupIDOf(ev)
			return ok && gid == groupID
		},
	}
}

// OnExactMatch 去除首尾空白后与 s 完全相同
func OnExactMatch(s string) Rule {
	want := strings.TrimSpace(s)
	return OnText("on_exact_match("+s+")", func(text string) bool {
		return text == want
	})
}

// OnPrefix 去除首尾空白后以 prefix 开头
func OnPrefix(prefix string) Rule {
	want := strings.TrimSpace(prefix)
	return OnText("on_prefix("+prefix+")", func(text string) bool {
		return strings.HasPrefix(text, want)
	})
}

// OnSuffix 去除首尾空白后以 suffix 结尾
func OnSuffix(suffix string) Rule {
	want := strings.TrimSpace(suffix)
	return OnText("on_suffix("+suffix+")", func(text string) bool {
		return strings.HasSuffix(text, want)
	})
}

// OnText 自定义文本规则，fn 收到的文本已去除首尾空白
func OnText(name string, fn func(text string) bool) Rule {
	return Rule{
		name: name,
		kind: kindText,
		text: func(text string) bool {
			return fn(strings.TrimSpace(text))
		},
	}
}

// OnSender 自定义发送人规则
func OnSender(name string, fn func(*onebot.Sender) bool) Rule {
	return Rule{name: name, kind: kindSender, sender: fn}
}

// OnEvent 自定义整事件规则
func OnEvent(name string, fn func(onebot.Event) bool) Rule {
	return Rule{name: name, kind: kindEvent, event: fn}
}

func isMessage(ev onebot.Event) bool {
	return isGroupMessage(ev) || isPrivateMessage(ev)
}

func isGroupMessage(ev onebot.Event) bool {
	_, ok := ev.(*onebot.GroupMessage)
	return ok
}

func isPrivateMessage(ev onebot.Event) bool {
	_, ok := ev.(*onebot.PrivateMessage)
	return ok
}
