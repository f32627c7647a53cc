// Package pointer OneBot 可选字段的指针辅助函数。
package pointer

// Of 返回值的指针
func Of[T any](v T) *T {
	return &v
}

// Get nil 返回零值
func Get[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
