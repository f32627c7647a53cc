package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tokmz/qibot/pkg/chain"
	"github.com/tokmz/qibot/pkg/onebot"
)

// readPump 接收循环：读到关闭帧或读错误为止
// 响应交给等待中的调用，事件各起一个协程分发
func (a *Adapter) readPump(ctx context.Context, d *chain.Dispatcher) error {
	defer a.closeConn()

	a.conn.SetReadLimit(a.config.MaxMessageSize)
	if err := a.conn.SetReadDeadline(time.Now().Add(a.config.PongWait)); err != nil {
		return a.fail("read", err, a.metrics.IncrementReadErrors)
	}
	a.conn.SetPongHandler(func(string) error {
		return a.conn.SetReadDeadline(time.Now().Add(a.config.PongWait))
	})

	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			// 对端正常关闭：Disconnected 不带原因，Run 返回 nil
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				a.logger.Info("[ws] 对端关闭连接", zap.Error(err))
				a.terminate(nil)
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Warn("[ws] 连接异常关闭", zap.Error(err))
			}
			return a.fail("read", err, a.metrics.IncrementReadErrors)
		}
		// 任意入站帧都说明对端存活
		_ = a.conn.SetReadDeadline(time.Now().Add(a.config.PongWait))

		a.handleFrame(ctx, d, data)
	}
}

// handleFrame 按是否带 echo 区分响应与事件
func (a *Adapter) handleFrame(ctx context.Context, d *chain.Dispatcher, data []byte) {
	switch onebot.Classify(data) {
	case onebot.FrameResponse:
		resp, err := onebot.DecodeResponse(data)
		if err != nil {
			a.unrecognized(data, err)
			return
		}
		if !a.pending.resolve(resp.Echo, resp) {
			a.metrics.IncrementDroppedResponses()
			a.events.Publish(Event{Type: EventResponseDropped, Data: resp.Echo})
			a.logger.Warn("[ws] 没有等待该 echo 的调用，丢弃响应", zap.Int64("echo", resp.Echo))
		}

	case onebot.FrameEvent:
		ev, err := onebot.DecodeEvent(data)
		if err != nil {
			a.unrecognized(data, err)
			return
		}
		a.metrics.IncrementEventCount(ev.Name())
		go d.Dispatch(ctx, a, ev)

	default:
		a.unrecognized(data, nil)
	}
}

func (a *Adapter) unrecognized(data []byte, err error) {
	a.metrics.IncrementInvalidMessages()
	a.events.Publish(Event{Type: EventUnrecognized, Data: data})
	a.logger.Warn("[ws] 无法识别的数据，已丢弃", zap.ByteString("frame", truncate(data, 256)), zap.Error(err))
}

// writePump 发送循环：唯一的数据帧写入者，按入队顺序写出，并定时发送 ping
func (a *Adapter) writePump(ctx context.Context) error {
	ticker := time.NewTicker(a.config.PingInterval)
	defer func() {
		ticker.Stop()
		a.closeConn()
	}()

	for {
		select {
		case <-a.status.done:
			a.writeClose()
			return nil

		case <-ctx.Done():
			first := a.terminate(ctx.Err())
			a.writeClose()
			if first {
				return ctx.Err()
			}
			return nil

		case data := <-a.queue:
			if err := a.write(websocket.TextMessage, data); err != nil {
				return a.fail("write", err, a.metrics.IncrementWriteErrors)
			}

		case <-ticker.C:
			if err := a.write(websocket.PingMessage, nil); err != nil {
				return a.fail("ping", err, a.metrics.IncrementWriteErrors)
			}
		}
	}
}

// write 写入单帧
func (a *Adapter) write(messageType int, data []byte) error {
	if err := a.conn.SetWriteDeadline(time.Now().Add(a.config.WriteWait)); err != nil {
		return err
	}
	return a.conn.WriteMessage(messageType, data)
}

// writeClose 尽力发送关闭帧，忽略错误
func (a *Adapter) writeClose() {
	_ = a.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(a.config.WriteWait))
}

// fail 记录读写失败；只有第一个导致断开的循环返回错误
func (a *Adapter) fail(op string, err error, count func()) error {
	reason := transportError(op, err)
	if !a.terminate(reason) {
		return nil
	}
	count()
	return reason
}

func truncate(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[:n]
}
