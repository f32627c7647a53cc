package ws

import "time"

// 调用结果标签
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
	OutcomeStatus  = "status"
	OutcomeError   = "error"
)

// Metrics 监控接口
type Metrics interface {
	// 连接指标
	SetConnected(connected bool)

	// 调用指标
	RecordCall(action, outcome string, duration time.Duration)
	SetPendingCalls(count int)

	// 事件指标
	IncrementEventCount(event string)
	RecordHandler(plugin, union string, handled bool, err error, duration time.Duration)

	// 错误指标
	IncrementDroppedResponses()
	IncrementReadErrors()
	IncrementWriteErrors()
	IncrementInvalidMessages()
}

// NoopMetrics 空实现（默认）
type NoopMetrics struct{}

func (m *NoopMetrics) SetConnected(connected bool)                            {}
func (m *NoopMetrics) RecordCall(action, outcome string, duration time.Duration) {}
func (m *NoopMetrics) SetPendingCalls(count int)                              {}
func (m *NoopMetrics) IncrementEventCount(event string)                       {}
func (m *NoopMetrics) RecordHandler(plugin, union string, handled bool, err error, duration time.Duration) {
}
func (m *NoopMetrics) IncrementDroppedResponses() {}
func (m *NoopMetrics) IncrementReadErrors()       {}
func (m *NoopMetrics) IncrementWriteErrors()      {}
func (m *NoopMetrics) IncrementInvalidMessages()  {}
