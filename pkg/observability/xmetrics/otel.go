package xmetrics

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xprop/pkg/context/xctx"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xprop/xmetrics"
	unknownComponent           = "unknown"
	unknownOperation           = "unknown"

	metricOperationTotal    = "xprop.operation.total"
	metricOperationDuration = "xprop.operation.duration"
	metricInflight          = "xprop.operation.inflight"
	metricPropagationErrors = "xprop.propagation.errors"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option OTel Observer 配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，nil 忽略。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	o := &otelObserver{tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName)}
	var err error
	if o.total, err = meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("operations by component, operation and status"),
		metric.WithUnit("{operation}")); err != nil {
		return nil, instrumentError(metricOperationTotal, err)
	}
	if o.duration, err = meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("operation latency"),
		metric.WithUnit("s")); err != nil {
		return nil, instrumentError(metricOperationDuration, err)
	}
	if o.inflight, err = meter.Int64UpDownCounter(metricInflight,
		metric.WithDescription("operations started but not yet ended"),
		metric.WithUnit("{operation}")); err != nil {
		return nil, instrumentError(metricInflight, err)
	}
	if o.propagation, err = meter.Int64Counter(metricPropagationErrors,
		metric.WithDescription("operations that lost or mixed request context"),
		metric.WithUnit("{error}")); err != nil {
		return nil, instrumentError(metricPropagationErrors, err)
	}
	return o, nil
}

func instrumentError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCreateInstrument, name, err)
}

type otelObserver struct {
	tracer      trace.Tracer
	total       metric.Int64Counter
	duration    metric.Float64Histogram
	inflight    metric.Int64UpDownCounter
	propagation metric.Int64Counter
}

// Start 开始一次观测跨度。
//
// ctx 中没有活动 span 时，以 xctx 的 trace_id/span_id 作为远端父级；
// 新 span 的标识回写 xctx。
func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureParentSpan(ctx)

	component := opts.Component
	if component == "" {
		component = unknownComponent
	}
	operation := opts.Operation
	if operation == "" {
		operation = unknownOperation
	}

	base := []attribute.KeyValue{
		attribute.String(KeyComponent, component),
		attribute.String(KeyOperation, operation),
	}
	ctx, span := o.tracer.Start(ctx, operation,
		trace.WithSpanKind(mapSpanKind(opts.Kind)),
		trace.WithAttributes(base...),
		trace.WithAttributes(attrsToOTel(opts.Attrs)...),
	)
	ctx = syncXctx(ctx, span.SpanContext())
	o.inflight.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(base...))

	return ctx, &otelSpan{
		span:      span,
		observer:  o,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

type otelSpan struct {
	span      trace.Span
	observer  *otelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

// End 结束观测并记录结果，幂等。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.endOnce.Do(func() {
		status := ResolveStatus(result)
		if result.Err != nil {
			s.span.RecordError(result.Err)
		}
		switch {
		case status == StatusOK:
			s.span.SetStatus(codes.Ok, "")
		case result.Err != nil:
			s.span.SetStatus(codes.Error, result.Err.Error())
		default:
			s.span.SetStatus(codes.Error, string(status))
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		// 请求 ctx 可能已取消，指标仍需记录
		mctx := context.WithoutCancel(s.ctx)
		base := metric.WithAttributes(
			attribute.String(KeyComponent, s.component),
			attribute.String(KeyOperation, s.operation),
		)
		withStatus := metric.WithAttributes(
			attribute.String(KeyComponent, s.component),
			attribute.String(KeyOperation, s.operation),
			attribute.String(KeyStatus, string(status)),
		)
		s.observer.inflight.Add(mctx, -1, base)
		s.observer.total.Add(mctx, 1, withStatus)
		s.observer.duration.Record(mctx, time.Since(s.start).Seconds(), withStatus)
		if status == StatusMissing || status == StatusMismatch {
			s.observer.propagation.Add(mctx, 1, withStatus)
		}
	})
}

func mapSpanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

func ensureParentSpan(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	traceID, err := trace.TraceIDFromHex(xctx.TraceID(ctx))
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(xctx.SpanID(ctx))
	if err != nil {
		return ctx
	}

	var flags trace.TraceFlags
	if s := xctx.TraceFlags(ctx); s != "" {
		if parsed, err := strconv.ParseUint(s, 16, 8); err == nil {
			flags = trace.TraceFlags(parsed)
		}
	}
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	})
	return trace.ContextWithSpanContext(ctx, parent)
}

func syncXctx(ctx context.Context, sc trace.SpanContext) context.Context {
	if !sc.IsValid() {
		return ctx
	}
	out, err := xctx.WithTrace(ctx, xctx.Trace{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		TraceFlags: sc.TraceFlags().String(),
	})
	if err != nil {
		return ctx
	}
	return out
}
