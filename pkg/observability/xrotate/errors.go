package xrotate

import "errors"

// 配置校验错误
var (
	ErrEmptyFilename     = errors.New("xrotate: filename is required")
	ErrInvalidMaxSize    = errors.New("xrotate: invalid max size")
	ErrInvalidMaxBackups = errors.New("xrotate: invalid max backups")
	ErrInvalidMaxAge     = errors.New("xrotate: invalid max age")
	// ErrNoCleanupPolicy MaxBackups 与 MaxAgeDays 同时为 0。
	ErrNoCleanupPolicy = errors.New("xrotate: no cleanup policy configured")

	// ErrClosed 轮转器已关闭。
	ErrClosed = errors.New("xrotate: rotator is closed")
)
