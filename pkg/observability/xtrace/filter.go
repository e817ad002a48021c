package xtrace

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xmetrics"
	"github.com/omeyang/xprop/pkg/server/xfilter"
)

// OrderTracing ServerFilter 的默认顺序，位于业务过滤器之外。
const OrderTracing = -100

const instrumentationName = "github.com/omeyang/xprop/xtrace"

// FilterOption ServerFilter 选项
type FilterOption func(*filterConfig)

type filterConfig struct {
	order      int
	provider   trace.TracerProvider
	propagator propagation.TextMapPropagator
	exclude    func(*xfilter.Request) bool
	requestID  func() (string, error)
}

// WithOrder 设置过滤器顺序，默认 OrderTracing。
func WithOrder(order int) FilterOption {
	return func(cfg *filterConfig) { cfg.order = order }
}

// WithTracerProvider 设置 TracerProvider，默认 otel.GetTracerProvider()。
func WithTracerProvider(tp trace.TracerProvider) FilterOption {
	return func(cfg *filterConfig) {
		if tp != nil {
			cfg.provider = tp
		}
	}
}

// WithPropagator 设置提取父 span 的传播器，默认 TraceContext + Baggage。
func WithPropagator(p propagation.TextMapPropagator) FilterOption {
	return func(cfg *filterConfig) {
		if p != nil {
			cfg.propagator = p
		}
	}
}

// WithExclude 设置排除规则，命中的请求不创建 span。
func WithExclude(fn func(*xfilter.Request) bool) FilterOption {
	return func(cfg *filterConfig) { cfg.exclude = fn }
}

// WithRequestIDGenerator 设置缺失 X-Request-ID 时的生成函数。
// 生成失败时退回 xctx 的随机标识。
func WithRequestIDGenerator(fn func() (string, error)) FilterOption {
	return func(cfg *filterConfig) { cfg.requestID = fn }
}

// ServerFilter 返回为每个请求创建 OpenTelemetry server span 的过滤器。
//
// 父 span 从请求头提取；span 的 trace_id/span_id 同步写入 xctx，
// 缺失的 request_id 自动生成。
func ServerFilter(opts ...FilterOption) xfilter.Filter {
	cfg := filterConfig{
		order: OrderTracing,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}
	return xfilter.Suspending(&serverFilter{
		cfg:    cfg,
		tracer: cfg.provider.Tracer(instrumentationName),
	})
}

type serverFilter struct {
	cfg    filterConfig
	tracer trace.Tracer
}

func (f *serverFilter) Order() int   { return f.cfg.order }
func (f *serverFilter) Name() string { return "tracing" }

// extractParent 从请求头提取父级。
// ctx 中已有同一 trace 的本地 span（如链路的观测 span）时以它为父，
// 否则以 header 中的远端 span 为父。
func (f *serverFilter) extractParent(ctx context.Context, req *xfilter.Request) context.Context {
	local := trace.SpanFromContext(ctx)
	out := f.cfg.propagator.Extract(ctx, propagation.HeaderCarrier(req.Header))
	lsc := local.SpanContext()
	if lsc.IsValid() && !lsc.IsRemote() && lsc.TraceID() == trace.SpanContextFromContext(out).TraceID() {
		return trace.ContextWithSpan(out, local)
	}
	return out
}

func (f *serverFilter) Filter(ctx context.Context, req *xfilter.Request, chain xfilter.Chain) (*xfilter.Response, error) {
	if f.cfg.exclude != nil && f.cfg.exclude(req) {
		return xfilter.Next(ctx, chain, req)
	}

	ctx = f.extractParent(ctx, req)
	ctx, span := f.tracer.Start(ctx, req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	if id := req.Header.Get(HeaderTrackingID); id != "" {
		span.SetAttributes(attribute.String(xmetrics.KeyTrackingID, id))
	}
	ctx = syncSpanToXctx(ctx, span.SpanContext(), f.requestID(req))

	resp, err := xfilter.Next(ctx, chain, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
		if resp.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.Status))
		}
	}
	return resp, nil
}

func (f *serverFilter) requestID(req *xfilter.Request) string {
	if id := req.Header.Get(HeaderRequestID); id != "" || f.cfg.requestID == nil {
		return id
	}
	id, err := f.cfg.requestID()
	if err != nil {
		return ""
	}
	return id
}

// syncSpanToXctx 将 span 标识写入 xctx，使日志与出站注入使用同一链路。
func syncSpanToXctx(ctx context.Context, sc trace.SpanContext, requestID string) context.Context {
	tr := xctx.Trace{RequestID: requestID}
	if sc.IsValid() {
		tr.TraceID = sc.TraceID().String()
		tr.SpanID = sc.SpanID().String()
		tr.TraceFlags = sc.TraceFlags().String()
	}
	out, err := xctx.WithTrace(ctx, tr)
	if err != nil {
		return ctx
	}
	if out, err = xctx.EnsureTrace(out); err != nil {
		return ctx
	}
	return out
}
