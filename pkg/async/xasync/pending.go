package xasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xlog"
)

// ErrTaskPanic 任务执行中发生 panic。
var ErrTaskPanic = errors.New("xasync: task panicked")

// Pending 一个尚未完成的异步结果。
type Pending[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

func (p *Pending[T]) complete(v T, err error) {
	p.once.Do(func() {
		p.val, p.err = v, err
		close(p.done)
	})
}

func (p *Pending[T]) fail(err error) {
	var zero T
	p.complete(zero, err)
}

// Done 返回结果就绪时关闭的 channel。
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Await 等待结果。ctx 先结束时返回 ctx 的取消原因，任务本身不受影响。
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		var zero T
		return zero, xctx.ErrNilContext
	}
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}

// run 在目标侧恢复快照并执行 fn，panic 转为 ErrTaskPanic。
func run[T any](parent context.Context, snap Snapshot, s Scheduler, p *Pending[T], fn func(context.Context) (T, error)) {
	ctx, err := crossing(parent, snap)
	if err != nil {
		p.fail(err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			xlog.Stack(ctx, "xasync: task panic recovered",
				xlog.Scheduler(s.Name()), slog.Any("panic", r))
			p.fail(fmt.Errorf("%w on %s: %v", ErrTaskPanic, s.Name(), r))
		}
	}()
	p.complete(fn(ctx))
}

func scheduleErr(s Scheduler, err error) error {
	return fmt.Errorf("xasync: schedule on %s: %w", s.Name(), err)
}

// Go 捕获 ctx，在 s 上执行 fn，立即返回 *Pending。
//
// fn 收到的 context 只包含快照内容；调度失败时错误从 Await 返回。
func Go[T any](ctx context.Context, s Scheduler, fn func(context.Context) (T, error)) *Pending[T] {
	p := newPending[T]()
	if ctx == nil {
		p.fail(xctx.ErrNilContext)
		return p
	}
	snap := Capture(ctx)
	if err := s.Schedule(func() { run(ctx, snap, s, p, fn) }); err != nil {
		p.fail(scheduleErr(s, err))
	}
	return p
}

// Offload 在 s 上执行 fn 并等待结果。
func Offload[T any](ctx context.Context, s Scheduler, fn func(context.Context) (T, error)) (T, error) {
	return Go(ctx, s, fn).Await(ctx)
}

// Sleep 挂起 d，期间 ctx 结束时返回取消原因。
func Sleep(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		return xctx.ErrNilContext
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Suspend 挂起 d 后在 s 上恢复执行 resume，返回 *Pending。
//
// 挂起期间不占用 goroutine。ctx 在定时器触发前结束时，
// resume 不会执行，Await 返回取消原因。
func Suspend[T any](ctx context.Context, s Scheduler, d time.Duration, resume func(context.Context) (T, error)) *Pending[T] {
	p := newPending[T]()
	if ctx == nil {
		p.fail(xctx.ErrNilContext)
		return p
	}
	snap := Capture(ctx)

	ready := make(chan struct{})
	var stop func() bool
	timer := time.AfterFunc(d, func() {
		<-ready
		stop()
		if err := s.Schedule(func() { run(ctx, snap, s, p, resume) }); err != nil {
			p.fail(scheduleErr(s, err))
		}
	})
	stop = context.AfterFunc(ctx, func() {
		if timer.Stop() {
			p.fail(context.Cause(ctx))
		}
	})
	close(ready)
	return p
}
