package ws

import (
	"sync"
)

// State 连接状态
type State int

const (
	StateNotConnected State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Status 连接状态快照，Disconnected 时 Reason 为断开原因
type Status struct {
	State  State
	Reason error
}

func (s Status) String() string {
	if s.State == StateDisconnected && s.Reason != nil {
		return s.State.String() + "(" + s.Reason.Error() + ")"
	}
	return s.State.String()
}

// statusCell 单调推进的状态广播
// 每次变更关闭 changed 并换上新通道，进入 Disconnected 时关闭 done
type statusCell struct {
	mu      sync.Mutex
	cur     Status
	changed chan struct{}
	done    chan struct{}
}

func newStatusCell() *statusCell {
	return &statusCell{
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (c *statusCell) load() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// watch 当前状态以及下一次变更时关闭的通道
func (c *statusCell) watch() (Status, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, c.changed
}

// connect NotConnected -> Connected
func (c *statusCell) connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur.State != StateNotConnected {
		return false
	}
	c.set(Status{State: StateConnected})
	return true
}

// disconnect 进入终态，只有第一次调用生效
func (c *statusCell) disconnect(reason error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur.State == StateDisconnected {
		return false
	}
	c.set(Status{State: StateDisconnected, Reason: reason})
	close(c.done)
	return true
}

// set 调用方持有锁
func (c *statusCell) set(s Status) {
	c.cur = s
	close(c.changed)
	c.changed = make(chan struct{})
}
