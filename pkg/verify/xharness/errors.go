package xharness

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatch 至少一个响应体与发送的标识不一致。
	ErrMismatch = errors.New("xharness: tracking id mismatch")
	// ErrRequestFailed 至少一个请求未得到 2xx 响应。
	ErrRequestFailed = errors.New("xharness: request failed")
	// ErrInvalidConfig 配置不合法。
	ErrInvalidConfig = errors.New("xharness: invalid config")
	// ErrNilContext 传入了 nil context。
	ErrNilContext = errors.New("xharness: nil context")
)

// StatusError 服务端返回了非 2xx 状态码。
type StatusError struct {
	Code int
	// Propagation X-Propagation-Error 头的值，服务端识别出传播错误时非空。
	Propagation string
	Body        string
}

func (e *StatusError) Error() string {
	if e.Propagation != "" {
		return fmt.Sprintf("xharness: status %d (%s): %s", e.Code, e.Propagation, e.Body)
	}
	return fmt.Sprintf("xharness: status %d: %s", e.Code, e.Body)
}
