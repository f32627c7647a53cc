package chain

import (
	"strings"

	"github.com/tokmz/qibot/pkg/onebot"
)

// Matcher 规则的有序合取，只有全部规则匹配才算匹配
// 没有内置的“或”，需要时注册多个 MatchUnion
type Matcher struct {
	rules []Rule
}

// NewMatcher 由若干规则组成 Matcher
func NewMatcher(rules ...Rule) *Matcher {
	return &Matcher{rules: append([]Rule(nil), rules...)}
}

// And 追加规则，返回新的 Matcher，原 Matcher 不变
func (m *Matcher) And(rules ...Rule) *Matcher {
	out := make([]Rule, 0, len(m.rules)+len(rules))
	out = append(out, m.rules...)
	out = append(out, rules...)
	return &Matcher{rules: out}
}

// Merge 与另一个 Matcher 合取
func (m *Matcher) Merge(other *Matcher) *Matcher {
	return m.And(other.rules...)
}

// Rules 返回规则副本
func (m *Matcher) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

// IsMatch 按注册顺序求值，遇到第一条不匹配的规则立即返回 false
func (m *Matcher) IsMatch(ev onebot.Event) bool {
	for _, rule := range m.rules {
		if !rule.IsMatch(ev) {
			return false
		}
	}
	return true
}

// String 规则名以 " & " 连接
func (m *Matcher) String() string {
	names := make([]string, len(m.rules))
	for i, rule := range m.rules {
		names[i] = rule.name
	}
	return strings.Join(names, " & ")
}
