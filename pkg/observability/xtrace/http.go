package xtrace

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xlog"
)

// HTTP Header 名称
const (
	HeaderTrackingID = "X-TrackingId"

	HeaderTraceID   = "X-Trace-ID"
	HeaderSpanID    = "X-Span-ID"
	HeaderRequestID = "X-Request-ID"

	// W3C Trace Context
	HeaderTraceparent = "traceparent"
	HeaderTracestate  = "tracestate"
)

// ExtractFromHTTPHeader 从 HTTP Header 提取追踪信息。
// 有效的 traceparent 优先于自定义头。
func ExtractFromHTTPHeader(h http.Header) TraceInfo {
	if h == nil {
		return TraceInfo{}
	}
	info := TraceInfo{
		TraceID:     strings.TrimSpace(h.Get(HeaderTraceID)),
		SpanID:      strings.TrimSpace(h.Get(HeaderSpanID)),
		RequestID:   strings.TrimSpace(h.Get(HeaderRequestID)),
		Traceparent: strings.TrimSpace(h.Get(HeaderTraceparent)),
		Tracestate:  strings.TrimSpace(h.Get(HeaderTracestate)),
		TrackingID:  strings.TrimSpace(h.Get(HeaderTrackingID)),
	}
	info.applyTraceparent()
	return info
}

// MiddlewareOption 中间件选项
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	autoGenerate bool
}

// WithAutoGenerate 是否为缺失的 trace_id/span_id/request_id 生成新值，默认 true。
func WithAutoGenerate(enabled bool) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.autoGenerate = enabled
	}
}

// HTTPMiddleware 返回 net/http 中间件，将 Header 中的追踪信息写入 xctx。
func HTTPMiddleware(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{autoGenerate: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := injectTrace(r.Context(), ExtractFromHTTPHeader(r.Header), cfg.autoGenerate)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// injectTrace 将合法的追踪字段写入 ctx，不合法的丢弃并告警。
func injectTrace(ctx context.Context, info TraceInfo, autoGenerate bool) context.Context {
	var tr xctx.Trace
	tr.TraceID = validOrWarn(ctx, xctx.KeyTraceID, info.TraceID, isValidTraceID)
	tr.SpanID = validOrWarn(ctx, xctx.KeySpanID, info.SpanID, isValidSpanID)
	tr.RequestID = info.RequestID
	tr.TraceFlags = strings.ToLower(validOrWarn(ctx, xctx.KeyTraceFlags, info.TraceFlags, isValidTraceFlags))

	out, err := xctx.WithTrace(ctx, tr)
	if err != nil {
		return ctx
	}
	if autoGenerate {
		if out, err = xctx.EnsureTrace(out); err != nil {
			return ctx
		}
	}
	return out
}

func validOrWarn(ctx context.Context, name, value string, valid func(string) bool) string {
	if value == "" || valid(value) {
		return value
	}
	xlog.Warn(ctx, "xtrace: invalid "+name+" format, discarding", slog.String(name, value))
	return ""
}

// InjectToRequest 将 ctx 中的追踪信息与跟踪标识注入出站 HTTP 请求。
//
// 写入追踪头、traceparent、X-TrackingId（显式视图优先，其次环境快照），
// 以及视图中字符串条目组成的 W3C baggage。
func InjectToRequest(ctx context.Context, req *http.Request) {
	if ctx == nil || req == nil {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	tr := xctx.GetTrace(ctx)
	setIfNotEmpty(req.Header, HeaderTraceID, tr.TraceID)
	setIfNotEmpty(req.Header, HeaderSpanID, tr.SpanID)
	setIfNotEmpty(req.Header, HeaderRequestID, tr.RequestID)
	setIfNotEmpty(req.Header, HeaderTraceparent, formatTraceparent(tr.TraceID, tr.SpanID, tr.TraceFlags))
	setIfNotEmpty(req.Header, HeaderTrackingID, TrackingID(ctx))

	if err := xbridge.InjectBaggage(ctx, propagation.HeaderCarrier(req.Header)); err != nil {
		xlog.Warn(ctx, "xtrace: baggage members skipped", xlog.Err(err))
	}
}

// TrackingID 返回 ctx 中的跟踪标识：显式通道优先，其次环境通道。
func TrackingID(ctx context.Context) string {
	if v, ok := xbridge.Lookup(ctx, xctx.ExplicitTrackingID); ok {
		return v
	}
	v, _ := xbridge.Lookup(ctx, xctx.AmbientTrackingID)
	return v
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}
