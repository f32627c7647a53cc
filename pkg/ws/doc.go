// Package ws 是 OneBot 正向 websocket 适配器。
//
// # 功能
//
//   - 单连接上的调用/响应关联：每个请求带唯一 echo，响应按 echo 交还给调用方
//   - 固定 5 秒调用超时，连接断开时所有等待中的调用立即返回
//   - 单一发送循环按入队顺序写帧，并定时 ping
//   - 入站事件每个起一个协程，交给 chain.Dispatcher 按优先级分发
//   - 连接状态 NotConnected -> Connected -> Disconnected 单调推进，可等待变更
//   - 生命周期事件总线与 Prometheus 指标
//
// # 基本用法
//
//	adapter, err := ws.Dial(ctx, "ws://127.0.0.1:3001",
//	    ws.WithAccessToken(token),
//	    ws.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//
//	adapter.Events().Subscribe(ws.EventConnected, func(ws.Event) {
//	    info, err := caller.New(adapter).GetLoginInfo(ctx)
//	    // ...
//	})
//
//	// 阻塞到连接断开或 ctx 取消
//	err = adapter.Run(ctx, chain.Flatten(plugins...), plugins)
//
// 连接断开后适配器不可复用，需要重新 Dial。
package ws
