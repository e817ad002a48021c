package xasync

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xctx"
)

// Snapshot 出发点上下文的不可变快照。
type Snapshot struct {
	channels xbridge.State
	trace    xctx.Trace
	span     trace.Span
	baggage  baggage.Baggage
}

// Capture 捕获 ctx 中需要跨边界的上下文。
func Capture(ctx context.Context) Snapshot {
	if ctx == nil {
		return Snapshot{}
	}
	return Snapshot{
		channels: xbridge.CaptureState(ctx),
		trace:    xctx.GetTrace(ctx),
		span:     trace.SpanFromContext(ctx),
		baggage:  baggage.FromContext(ctx),
	}
}

// Restore 将快照安装到 base 上。
//
// 任一通道未能重新安装时返回的错误满足 errors.Is(err, xctx.ErrBoundaryLost)。
func (s Snapshot) Restore(base context.Context) (context.Context, error) {
	ctx, err := s.channels.Apply(base)
	if err != nil {
		return nil, fmt.Errorf("%w: channels: %w", xctx.ErrBoundaryLost, err)
	}
	if ctx, err = xctx.WithTrace(ctx, s.trace); err != nil {
		return nil, fmt.Errorf("%w: trace: %w", xctx.ErrBoundaryLost, err)
	}
	if s.span != nil && s.span.SpanContext().IsValid() {
		ctx = trace.ContextWithSpan(ctx, s.span)
	}
	if s.baggage.Len() > 0 {
		ctx = baggage.ContextWithBaggage(ctx, s.baggage)
	}
	return ctx, nil
}

// detached 保留 parent 的取消与截止时间，但不暴露 parent 的任何值。
// 跨边界后可见的上下文只来自 Snapshot.Restore。
type detached struct {
	parent context.Context
}

func (d detached) Deadline() (time.Time, bool) { return d.parent.Deadline() }
func (d detached) Done() <-chan struct{}       { return d.parent.Done() }
func (d detached) Err() error                  { return d.parent.Err() }
func (detached) Value(any) any                 { return nil }

// crossing 返回在目标侧执行时使用的 context：空白值 + 快照。
func crossing(parent context.Context, snap Snapshot) (context.Context, error) {
	return snap.Restore(detached{parent: parent})
}
