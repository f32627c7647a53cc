package logger

import "context"

// contextKey 日志上下文键
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	userIDKey  contextKey = "user_id"
	groupIDKey contextKey = "group_id"
)

// WithTraceID 在 Context 中设置追踪 ID（每次事件分发一个）
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithUserID 在 Context 中设置触发事件的用户
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithGroupID 在 Context 中设置触发事件的群
func WithGroupID(ctx context.Context, groupID int64) context.Context {
	return context.WithValue(ctx, groupIDKey, groupID)
}

// TraceIDFrom 读取追踪 ID
func TraceIDFrom(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}
