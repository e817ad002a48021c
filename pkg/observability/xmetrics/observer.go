package xmetrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/omeyang/xprop/pkg/context/xctx"
)

// Kind 观测跨度类型。
type Kind int

const (
	// KindInternal 内部操作，如调度器上的任务。
	KindInternal Kind = iota
	// KindServer 服务端处理。
	KindServer
	// KindClient 客户端调用。
	KindClient
)

// String 返回 Kind 的可读表示。
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindServer:
		return "Server"
	case KindClient:
		return "Client"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 观测结果状态。
type Status string

const (
	// StatusOK 成功。
	StatusOK Status = "ok"
	// StatusError 一般失败。
	StatusError Status = "error"
	// StatusMissing 必需的上下文键缺失。
	StatusMissing Status = "missing"
	// StatusMismatch 两个通道的值不一致。
	StatusMismatch Status = "mismatch"
)

// Attr 观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 观测跨度的创建参数。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 观测跨度结束时的结果。
type Result struct {
	// Status 为空时根据 Err 推导，见 ResolveStatus。
	Status Status
	Err    error
	Attrs  []Attr
}

// ResolveStatus 推导结果状态。
//
// 显式 Status 优先；否则按错误分类：ErrContextMismatch → mismatch，
// ErrContextMissing 或 ErrBoundaryLost → missing，其他错误 → error。
func ResolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	switch err := result.Err; {
	case err == nil:
		return StatusOK
	case errors.Is(err, xctx.ErrContextMismatch):
		return StatusMismatch
	case errors.Is(err, xctx.ErrContextMissing), errors.Is(err, xctx.ErrBoundaryLost):
		return StatusMissing
	default:
		return StatusError
	}
}

// Span 一次观测跨度。
type Span interface {
	// End 结束观测并记录结果。
	End(result Result)
}

// Observer 统一观测接口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 空实现。
type NoopObserver struct{}

// Start 返回 ctx 和空跨度。nil ctx 替换为 context.Background()。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(_ Result) {}

// Start 使用 observer 开始观测，保证返回非 nil 的 ctx 与 Span。
//
// nil observer 返回空跨度；自定义 Observer 返回 nil 时同样兜底。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
