package xasync

import (
	"context"
	"fmt"

	"github.com/omeyang/xprop/pkg/util/xpool"
)

// Scheduler 最小调度接口。
type Scheduler interface {
	// Name 调度器名称，用于日志与错误描述。
	Name() string

	// Schedule 提交 task 异步执行。无法接收时返回错误，task 不会被执行。
	Schedule(task func()) error
}

// PoolScheduler 基于固定大小 worker pool 的调度器。
type PoolScheduler struct {
	name string
	pool *xpool.Pool[func()]
}

// NewPoolScheduler 创建 PoolScheduler，workers 和 queueSize 的约束同 xpool.New。
func NewPoolScheduler(name string, workers, queueSize int, opts ...xpool.Option) (*PoolScheduler, error) {
	opts = append([]xpool.Option{xpool.WithName(name)}, opts...)
	pool, err := xpool.New(workers, queueSize, func(task func()) { task() }, opts...)
	if err != nil {
		return nil, fmt.Errorf("xasync: scheduler %q: %w", name, err)
	}
	return &PoolScheduler{name: name, pool: pool}, nil
}

// Name 实现 Scheduler。
func (s *PoolScheduler) Name() string { return s.name }

// Schedule 实现 Scheduler。队列满或已关闭时返回 xpool 对应的错误。
func (s *PoolScheduler) Schedule(task func()) error {
	return s.pool.Submit(task)
}

// Stats 返回底层 pool 的计数。
func (s *PoolScheduler) Stats() xpool.Stats { return s.pool.Stats() }

// Close 停止接收任务并等待已提交的任务完成。
func (s *PoolScheduler) Close() error { return s.pool.Close() }

// Shutdown 同 Close，ctx 到期时提前返回。
func (s *PoolScheduler) Shutdown(ctx context.Context) error { return s.pool.Shutdown(ctx) }

type inline struct{}

// Inline 返回在调用方 goroutine 上同步执行任务的调度器。
func Inline() Scheduler { return inline{} }

func (inline) Name() string { return "inline" }

func (inline) Schedule(task func()) error {
	task()
	return nil
}

var _ Scheduler = (*PoolScheduler)(nil)
