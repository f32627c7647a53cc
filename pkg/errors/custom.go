package errors

/*
	机器人内置错误码
*/

var (
	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = New(2000, "配置非法", nil)
	// ErrStatus 连接状态不是 Connected 时发起调用
	ErrStatus = New(2001, "连接状态异常", nil)
	// ErrTimeout 调用在固定时间窗口内未收到响应
	ErrTimeout = New(2002, "调用超时", nil)
	// ErrTransport 底层读写或序列化失败，连接不可再用
	ErrTransport = New(2003, "传输异常", nil)
	// ErrResponseShape 响应数据与动作期望的结构不符
	ErrResponseShape = New(2004, "响应结构不匹配", nil)
	// ErrUnrecognizedPayload 入站帧既不是响应也不是已知事件
	ErrUnrecognizedPayload = New(2005, "无法识别的数据", nil)
	// ErrHandler 处理器返回错误
	ErrHandler = New(2006, "处理器异常", nil)
	// ErrActionFailed 对端返回 status=failed
	ErrActionFailed = New(2007, "动作执行失败", nil)
)
