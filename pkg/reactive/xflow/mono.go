package xflow

import (
	"context"
	"time"

	"github.com/omeyang/xprop/pkg/async/xasync"
	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
)

// Mono 惰性求值的单值阶段。零值 Mono 产生 T 的零值。
type Mono[T any] struct {
	source func(ctx context.Context, amb xcarrier.Carrier) (T, error)
}

// Subscribe 以环境通道 amb 订阅 m。
func (m Mono[T]) Subscribe(ctx context.Context, amb xcarrier.Carrier) (T, error) {
	if ctx == nil {
		var zero T
		return zero, xctx.ErrNilContext
	}
	if m.source == nil {
		var zero T
		return zero, nil
	}
	return m.source(ctx, amb)
}

// Block 以空环境通道订阅 m。
func (m Mono[T]) Block(ctx context.Context) (T, error) {
	return m.Subscribe(ctx, xcarrier.Empty())
}

// Await 以 ctx 的当前视图作为环境通道订阅 m。
// 可挂起函数中调用时，显式通道的内容因此对下游流水线可见。
func Await[T any](ctx context.Context, m Mono[T]) (T, error) {
	return m.Subscribe(ctx, xbridge.View(ctx))
}

// Just 产生固定值。
func Just[T any](v T) Mono[T] {
	return Mono[T]{source: func(context.Context, xcarrier.Carrier) (T, error) {
		return v, nil
	}}
}

// Fail 产生错误。
func Fail[T any](err error) Mono[T] {
	return Mono[T]{source: func(context.Context, xcarrier.Carrier) (T, error) {
		var zero T
		return zero, err
	}}
}

// FromFunc 把可挂起函数 fn 包装为 Mono。
//
// 订阅时先以 xbridge.Enter 记录环境快照，fn 通过 xbridge.CurrentAmbient
// 或 xbridge.View 读取。
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		ctx, err := xbridge.Enter(ctx, amb)
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	}}
}

// Deferred 订阅时根据 ctx 与环境通道构造上游 Mono。
func Deferred[T any](fn func(ctx context.Context, amb xcarrier.Carrier) Mono[T]) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		return fn(ctx, amb).Subscribe(ctx, amb)
	}}
}

// Map 对结果做同步变换。
func Map[T, R any](m Mono[T], fn func(T) R) Mono[R] {
	return Mono[R]{source: func(ctx context.Context, amb xcarrier.Carrier) (R, error) {
		v, err := m.Subscribe(ctx, amb)
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(v), nil
	}}
}

// FlatMap 用结果构造下一个 Mono 并以同一环境通道订阅。
func FlatMap[T, R any](m Mono[T], fn func(T) Mono[R]) Mono[R] {
	return Mono[R]{source: func(ctx context.Context, amb xcarrier.Carrier) (R, error) {
		v, err := m.Subscribe(ctx, amb)
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(v).Subscribe(ctx, amb)
	}}
}

// ContextWrite 变换传给上游的环境通道。下游不受影响。
func (m Mono[T]) ContextWrite(fn func(xcarrier.Carrier) xcarrier.Carrier) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		return m.Subscribe(ctx, fn(amb))
	}}
}

// SubscribeOn 在调度器 s 上订阅上游。
//
// 显式通道经 xasync 快照跨越边界，环境通道作为参数随任务一起传递。
func (m Mono[T]) SubscribeOn(s xasync.Scheduler) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		return xasync.Offload(ctx, s, func(ctx context.Context) (T, error) {
			return m.Subscribe(ctx, amb)
		})
	}}
}

// DelayElement 上游成功后延迟 d 再向下游发出结果。
func (m Mono[T]) DelayElement(d time.Duration) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		v, err := m.Subscribe(ctx, amb)
		if err != nil {
			return v, err
		}
		if err := xasync.Sleep(ctx, d); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	}}
}

// DoFinally 上游结束（成功或失败）后调用 fn，不改变结果。
func (m Mono[T]) DoFinally(fn func(ctx context.Context, err error)) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		v, err := m.Subscribe(ctx, amb)
		fn(ctx, err)
		return v, err
	}}
}

// OnErrorResume 上游失败时切换到 fn 返回的 Mono。
func (m Mono[T]) OnErrorResume(fn func(error) Mono[T]) Mono[T] {
	return Mono[T]{source: func(ctx context.Context, amb xcarrier.Carrier) (T, error) {
		v, err := m.Subscribe(ctx, amb)
		if err == nil {
			return v, nil
		}
		return fn(err).Subscribe(ctx, amb)
	}}
}
