package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xprop/pkg/observability/xlog"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

// Pool 固定 worker 数量的泛型任务池。
type Pool[T any] struct {
	handler func(T)
	queue   chan T
	opts    options
	workers int

	mu      sync.RWMutex // 保护 stopped 与 queue 的关闭
	stopped bool

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once

	submitted atomic.Uint64
	rejected  atomic.Uint64
	panics    atomic.Uint64
}

// Stats Pool 运行计数的快照。
type Stats struct {
	Workers   int    `json:"workers"`
	Pending   int    `json:"pending"`
	Submitted uint64 `json:"submitted"`
	Rejected  uint64 `json:"rejected"`
	Panics    uint64 `json:"panics"`
}

var _ io.Closer = (*Pool[int])(nil)

// New 创建并启动 Pool。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		opts:    o,
		workers: workers,
		done:    make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			attrs := []slog.Attr{
				slog.Any("panic", r),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.String("stack", string(debug.Stack())),
			}
			if p.opts.name != "" {
				attrs = append(attrs, xlog.Scheduler(p.opts.name))
			}
			if p.opts.logTaskValue {
				attrs = append(attrs, slog.Any("task", task))
			}
			p.opts.log().Error(context.Background(), "xpool: task panic recovered", attrs...)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
//
// 队列满返回 ErrQueueFull，pool 已关闭返回 ErrPoolStopped。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.rejected.Add(1)
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

// Close 停止接收新任务，并等待队列中的任务全部完成。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收新任务并等待完成，ctx 到期时提前返回 ctx.Err()。
//
// 提前返回后 worker 仍会把队列处理完，可通过 Done() 等待。
// 重复调用安全。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 返回在所有 worker 退出后关闭的 channel。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量。
func (p *Pool[T]) Workers() int {
	return p.workers
}

// Name 返回 pool 名称。
func (p *Pool[T]) Name() string {
	return p.opts.name
}

// Pending 返回队列中尚未被取走的任务数。
func (p *Pool[T]) Pending() int {
	return len(p.queue)
}

// Stats 返回当前计数。各字段分别读取，彼此之间不保证一致。
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Pending:   len(p.queue),
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Panics:    p.panics.Load(),
	}
}
