package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/qibot/pkg/tracing"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`               // 业务状态码
	Data    any    `json:"data"`               // 响应数据
	Message string `json:"message"`            // 响应消息
	TraceID string `json:"trace_id,omitempty"` // 追踪ID（可选）
}

// NewResponse 创建响应
func NewResponse(code int, data any, message string) *Response {
	return &Response{
		Code:    code,
		Data:    data,
		Message: message,
	}
}

// Success 创建成功响应
func Success(data any) *Response {
	return NewResponse(http.StatusOK, data, "success")
}

// Fail 创建失败响应
func Fail(code int, message string) *Response {
	return NewResponse(code, nil, message)
}

// ListResp 列表响应结构
type ListResp struct {
	List  any `json:"list"`  // 数据列表
	Total int `json:"total"` // 总数
}

// ListData 列表数据包装器，list 为 nil 时输出空数组
func ListData[T any](list []T) *Response {
	if list == nil {
		list = []T{}
	}
	return Success(&ListResp{List: list, Total: len(list)})
}

// write 输出 JSON，附带当前请求的 trace_id
func write(c *gin.Context, status int, r *Response) {
	r.TraceID = tracing.TraceID(c.Request.Context())
	c.JSON(status, r)
}
