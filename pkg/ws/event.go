package ws

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType 适配器生命周期事件类型
type EventType string

const (
	// EventConnected 进入 Connected
	EventConnected EventType = "adapter.connected"
	// EventDisconnected 进入 Disconnected，Data 为断开原因
	EventDisconnected EventType = "adapter.disconnected"
	// EventUnrecognized 收到无法识别的帧，Data 为原始字节
	EventUnrecognized EventType = "frame.unrecognized"
	// EventResponseDropped 响应没有对应的等待调用，Data 为 echo
	EventResponseDropped EventType = "response.dropped"
)

// Event 生命周期事件
type Event struct {
	Type EventType
	Data any
	Time time.Time
}

// EventHandler 事件处理器
type EventHandler func(Event)

// EventBus 事件总线，处理器在 worker 中异步执行
type EventBus struct {
	handlers      map[EventType][]EventHandler
	mu            sync.RWMutex
	workerCh      chan func()
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	closed        atomic.Bool
	droppedEvents atomic.Int64 // 丢弃的事件计数
}

// NewEventBus 创建事件总线
func NewEventBus(workers int) *EventBus {
	if workers <= 0 {
		workers = 2
	}
	eb := &EventBus{
		handlers: make(map[EventType][]EventHandler),
		workerCh: make(chan func(), 256),
		stopCh:   make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}

	return eb
}

// worker 工作协程，停止时执行完队列中剩余的任务
func (eb *EventBus) worker() {
	defer eb.wg.Done()
	for {
		select {
		case task := <-eb.workerCh:
			task()
		case <-eb.stopCh:
			for {
				select {
				case task := <-eb.workerCh:
					task()
				default:
					return
				}
			}
		}
	}
}

// Subscribe 订阅事件
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish 发布事件（异步）
func (eb *EventBus) Publish(event Event) {
	if eb.closed.Load() {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		h := handler

		// 连接/断开必须送达，稍等一会；其它事件队列满时直接丢弃
		if event.Type == EventConnected || event.Type == EventDisconnected {
			select {
			case eb.workerCh <- func() { h(event) }:
			case <-time.After(100 * time.Millisecond):
				eb.droppedEvents.Add(1)
			}
		} else {
			select {
			case eb.workerCh <- func() { h(event) }:
			default:
				eb.droppedEvents.Add(1)
			}
		}
	}
}

// Close 关闭事件总线，等待已入队的事件处理完
func (eb *EventBus) Close() {
	eb.stopOnce.Do(func() {
		eb.closed.Store(true)
		close(eb.stopCh)
	})
	eb.wg.Wait()
}

// DroppedEvents 丢弃的事件数量
func (eb *EventBus) DroppedEvents() int64 {
	return eb.droppedEvents.Load()
}
