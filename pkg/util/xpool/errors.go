package xpool

import "errors"

// 构造参数错误。
var (
	ErrNilHandler       = errors.New("xpool: nil handler")
	ErrInvalidWorkers   = errors.New("xpool: worker count out of range")
	ErrInvalidQueueSize = errors.New("xpool: queue size out of range")
	ErrNilContext       = errors.New("xpool: nil context")
)

// Submit 拒绝任务时返回的错误，任务不会被执行。
var (
	// ErrPoolStopped Close/Shutdown 之后提交。
	ErrPoolStopped = errors.New("xpool: pool is stopped")
	// ErrQueueFull 队列已满。Submit 从不阻塞，调用方自行决定降级或重试。
	ErrQueueFull = errors.New("xpool: queue is full")
)
