package xfilter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xlog"
	"github.com/omeyang/xprop/pkg/observability/xmetrics"
	"github.com/omeyang/xprop/pkg/reactive/xflow"
)

// Phase 链路执行阶段。
type Phase int

const (
	// PhaseDispatching 过滤器在调用剩余链路之前。
	PhaseDispatching Phase = iota
	// PhaseInHandler 终端 Handler 执行中。
	PhaseInHandler
	// PhaseUnwinding 内层已返回，过滤器处理出站结果。
	PhaseUnwinding
)

// String 返回阶段名称。
func (p Phase) String() string {
	switch p {
	case PhaseDispatching:
		return "dispatching"
	case PhaseInHandler:
		return "in_handler"
	case PhaseUnwinding:
		return "unwinding"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// PhaseHook 阶段回调。link 为过滤器名称或 "handler"。
type PhaseHook func(ctx context.Context, phase Phase, link string)

// HeaderPropagationError 传播错误类型的响应头。
const HeaderPropagationError = "X-Propagation-Error"

const maxBodyBytes = 1 << 20

// Option 配置 Pipeline。
type Option func(*Pipeline)

// WithFilters 追加过滤器。
func WithFilters(filters ...Filter) Option {
	return func(p *Pipeline) {
		for _, f := range filters {
			if f != nil {
				p.filters = append(p.filters, f)
			}
		}
	}
}

// WithPhaseHook 设置阶段回调。
func WithPhaseHook(hook PhaseHook) Option {
	return func(p *Pipeline) { p.hook = hook }
}

// WithObserver 设置每请求观测器。
func WithObserver(obs xmetrics.Observer) Option {
	return func(p *Pipeline) { p.observer = obs }
}

// Pipeline 按 Order 排序的过滤器链加终端 Handler。
type Pipeline struct {
	filters  []Filter
	handler  Handler
	hook     PhaseHook
	observer xmetrics.Observer
}

// NewPipeline 创建 Pipeline。过滤器按 Order 升序稳定排序。
func NewPipeline(handler Handler, opts ...Option) *Pipeline {
	p := &Pipeline{handler: handler}
	for _, opt := range opts {
		opt(p)
	}
	slices.SortStableFunc(p.filters, func(a, b Filter) int {
		return a.Order() - b.Order()
	})
	return p
}

// Filters 返回排序后的过滤器副本。
func (p *Pipeline) Filters() []Filter {
	return slices.Clone(p.filters)
}

// Execute 返回处理 req 的 Mono。
func (p *Pipeline) Execute(req *Request) xflow.Mono[*Response] {
	return link{p: p, idx: 0}.Proceed(req)
}

type link struct {
	p   *Pipeline
	idx int
}

func (l link) Proceed(req *Request) xflow.Mono[*Response] {
	p := l.p
	if l.idx >= len(p.filters) {
		return xflow.FromFunc(func(ctx context.Context) (*Response, error) {
			p.emit(ctx, PhaseInHandler, "handler")
			if p.handler == nil {
				return Text(http.StatusNotFound, "no handler"), nil
			}
			return p.handler.Handle(ctx, req)
		})
	}

	f := p.filters[l.idx]
	name := nameOf(f)
	next := link{p: p, idx: l.idx + 1}
	return xflow.Deferred(func(ctx context.Context, _ xcarrier.Carrier) xflow.Mono[*Response] {
		p.emit(ctx, PhaseDispatching, name)
		return f.DoFilter(req, next)
	}).DoFinally(func(ctx context.Context, _ error) {
		p.emit(ctx, PhaseUnwinding, name)
	})
}

func (p *Pipeline) emit(ctx context.Context, phase Phase, name string) {
	if p.hook != nil {
		p.hook(ctx, phase, name)
	}
}

// ServeHTTP 实现 http.Handler。
//
// 以 r.Context() 的当前视图作为环境通道订阅链路。
// 观测 span 为 internal，携带 traceparent 时加入调用方的 trace；
// server span 由跟踪过滤器创建并嵌套在其下。
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parent := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := xmetrics.Start(parent, p.observer, xmetrics.SpanOptions{
		Component: "xfilter",
		Operation: r.Method + " " + r.URL.Path,
		Kind:      xmetrics.KindInternal,
	})

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		span.End(xmetrics.Result{Err: err})
		writeResponse(w, Text(http.StatusRequestEntityTooLarge, err.Error()))
		return
	}

	req := NewRequest(r.Method, r.URL.Path, r.Header.Clone(), body)
	resp, err := xflow.Await(ctx, p.Execute(req))
	if err != nil {
		resp = ErrorResponse(err)
		logFailure(ctx, req, err)
	}
	if resp == nil {
		resp = &Response{Status: http.StatusNoContent}
	}
	span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.HTTPStatus(resp.Status)}})
	writeResponse(w, resp)
}

// ErrorResponse 将错误映射为响应。
func ErrorResponse(err error) *Response {
	var resp *Response
	switch {
	case errors.Is(err, xctx.ErrContextMismatch):
		resp = Text(http.StatusConflict, err.Error())
		resp.Header.Set(HeaderPropagationError, "mismatch")
	case errors.Is(err, xctx.ErrContextMissing), errors.Is(err, xctx.ErrBoundaryLost):
		resp = Text(http.StatusInternalServerError, err.Error())
		resp.Header.Set(HeaderPropagationError, "missing")
	default:
		resp = Text(http.StatusInternalServerError, err.Error())
	}
	return resp
}

func logFailure(ctx context.Context, req *Request, err error) {
	attrs := []slog.Attr{xlog.Method(req.Method), xlog.Path(req.Path), xlog.Err(err)}
	var me *xctx.MismatchError
	if errors.As(err, &me) {
		attrs = append(attrs, slog.String("ambient", me.Ambient), slog.String("explicit", me.Explicit))
	}
	xlog.Warn(ctx, "xfilter: request failed", attrs...)
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}
