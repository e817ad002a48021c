package xctx

import (
	"errors"
	"fmt"
)

// contextKey 包私有的 context key 类型。
// 字符串值便于在调试时识别 context 链中的条目。
type contextKey string

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")
)

// =============================================================================
// 传播正确性错误
// =============================================================================

var (
	// ErrContextMissing 必需的上下文键在读取时不存在。
	// 正常路径上不应出现，出现即说明存在传播缺陷。
	ErrContextMissing = errors.New("xctx: context missing")

	// ErrContextMismatch 同一请求在两个通道上读出的值不一致。
	ErrContextMismatch = errors.New("xctx: context mismatch")

	// ErrBoundaryLost 上下文未能跨越并发边界。
	ErrBoundaryLost = errors.New("xctx: context lost across boundary")
)

// MismatchError 描述两个通道之间的不一致。
//
// errors.Is(err, ErrContextMismatch) 对 *MismatchError 返回 true。
type MismatchError struct {
	Key      string // 逻辑键名（如 "tracking_id"）
	Ambient  string // 环境通道读出的值
	Explicit string // 显式通道读出的值
}

// Error 实现 error 接口。
func (e *MismatchError) Error() string {
	return fmt.Sprintf("xctx: context mismatch on %s: ambient=%q explicit=%q", e.Key, e.Ambient, e.Explicit)
}

// Is 支持 errors.Is(err, ErrContextMismatch)。
func (e *MismatchError) Is(target error) bool {
	return target == ErrContextMismatch
}

// MissingError 返回包装了键名的 ErrContextMissing。
func MissingError(key string) error {
	return fmt.Errorf("%w: %s", ErrContextMissing, key)
}

// =============================================================================
// Trace 相关错误
// =============================================================================

var (
	// ErrMissingTraceID trace_id 缺失
	ErrMissingTraceID = errors.New("xctx: missing trace_id")

	// ErrMissingSpanID span_id 缺失
	ErrMissingSpanID = errors.New("xctx: missing span_id")

	// ErrMissingRequestID request_id 缺失
	ErrMissingRequestID = errors.New("xctx: missing request_id")
)
