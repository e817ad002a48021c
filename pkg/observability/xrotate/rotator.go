package xrotate

import "io"

// Rotator 日志轮转器，并发安全。Close 之后 Write 与 Rotate 返回 ErrClosed。
type Rotator interface {
	io.WriteCloser
	// Rotate 立即关闭当前文件并开始新文件。
	Rotate() error
}
