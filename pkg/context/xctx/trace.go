package xctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// ID 长度（W3C Trace Context）
const (
	// TraceIDSize 128-bit -> 32 hex chars
	TraceIDSize = 16

	// SpanIDSize 64-bit -> 16 hex chars
	SpanIDSize = 8
)

// Trace 日志属性 Key，遵循 OpenTelemetry 语义约定（下划线分隔）
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyRequestID  = "request_id"
	KeyTraceFlags = "trace_flags"

	traceFieldCount = 4
)

const (
	keyTraceID    = contextKey("xctx:trace_id")
	keySpanID     = contextKey("xctx:span_id")
	keyRequestID  = contextKey("xctx:request_id")
	keyTraceFlags = contextKey("xctx:trace_flags")
)

func withString(ctx context.Context, key contextKey, v string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, v), nil
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func requireString(ctx context.Context, key contextKey, missing error) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	if v := stringValue(ctx, key); v != "" {
		return v, nil
	}
	return "", missing
}

// WithTraceID 将 trace ID 注入 context。ctx 为 nil 时返回 ErrNilContext。
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	return withString(ctx, keyTraceID, traceID)
}

// TraceID 读取 trace ID，不存在返回空字符串。
func TraceID(ctx context.Context) string { return stringValue(ctx, keyTraceID) }

// RequireTraceID 读取 trace ID，缺失时返回 ErrMissingTraceID。
func RequireTraceID(ctx context.Context) (string, error) {
	return requireString(ctx, keyTraceID, ErrMissingTraceID)
}

// WithSpanID 将 span ID 注入 context。
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	return withString(ctx, keySpanID, spanID)
}

// SpanID 读取 span ID，不存在返回空字符串。
func SpanID(ctx context.Context) string { return stringValue(ctx, keySpanID) }

// RequireSpanID 读取 span ID，缺失时返回 ErrMissingSpanID。
func RequireSpanID(ctx context.Context) (string, error) {
	return requireString(ctx, keySpanID, ErrMissingSpanID)
}

// WithRequestID 将 request ID 注入 context。
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	return withString(ctx, keyRequestID, requestID)
}

// RequestID 读取 request ID，不存在返回空字符串。
func RequestID(ctx context.Context) string { return stringValue(ctx, keyRequestID) }

// RequireRequestID 读取 request ID，缺失时返回 ErrMissingRequestID。
func RequireRequestID(ctx context.Context) (string, error) {
	return requireString(ctx, keyRequestID, ErrMissingRequestID)
}

// WithTraceFlags 注入 W3C trace-flags（2 位十六进制，如 "01" 表示已采样）。
func WithTraceFlags(ctx context.Context, flags string) (context.Context, error) {
	return withString(ctx, keyTraceFlags, flags)
}

// TraceFlags 读取 trace-flags，不存在返回空字符串。
func TraceFlags(ctx context.Context) string { return stringValue(ctx, keyTraceFlags) }

// randomHex 生成 n 字节的非全零随机数并编码为小写十六进制。
// W3C 规范禁止全零的 trace-id/span-id。
//
// 熵源不可用时 panic：此时系统已无法提供安全随机数。
func randomHex(n int) string {
	buf := make([]byte, n)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("xctx: crypto/rand.Read failed: " + err.Error())
		}
		for _, b := range buf {
			if b != 0 {
				return hex.EncodeToString(buf)
			}
		}
	}
}

// GenerateTraceID 生成 32 位小写十六进制 TraceID。
func GenerateTraceID() string { return randomHex(TraceIDSize) }

// GenerateSpanID 生成 16 位小写十六进制 SpanID。
func GenerateSpanID() string { return randomHex(SpanIDSize) }

// GenerateRequestID 生成 RequestID，格式与 TraceID 相同。
func GenerateRequestID() string { return randomHex(TraceIDSize) }

// SampledTraceFlags W3C trace-flags 的已采样取值。
const SampledTraceFlags = "01"

// EnsureTrace 补全缺失的 TraceID、SpanID、RequestID，已存在的字段原样保留。
//
// 本地新建 trace 时视为采样根，TraceFlags 为空则补 "01"；
// 否则 ParentBased 采样器会按未采样丢弃下游 span。
// 沿用上游 TraceID 时 TraceFlags 保持上游决策。
func EnsureTrace(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	var missing Trace
	if TraceID(ctx) == "" {
		missing.TraceID = GenerateTraceID()
		if TraceFlags(ctx) == "" {
			missing.TraceFlags = SampledTraceFlags
		}
	}
	if SpanID(ctx) == "" {
		missing.SpanID = GenerateSpanID()
	}
	if RequestID(ctx) == "" {
		missing.RequestID = GenerateRequestID()
	}
	if missing == (Trace{}) {
		return ctx, nil
	}
	return WithTrace(ctx, missing)
}

// Trace 追踪信息的批量视图。
type Trace struct {
	TraceID    string
	SpanID     string
	RequestID  string
	TraceFlags string
}

// GetTrace 批量读取追踪信息，字段可能为空。
func GetTrace(ctx context.Context) Trace {
	return Trace{
		TraceID:    TraceID(ctx),
		SpanID:     SpanID(ctx),
		RequestID:  RequestID(ctx),
		TraceFlags: TraceFlags(ctx),
	}
}

// Validate 按 TraceID、SpanID、RequestID 的顺序返回第一个缺失字段的错误。
// TraceFlags 不参与校验。
func (t Trace) Validate() error {
	switch {
	case t.TraceID == "":
		return ErrMissingTraceID
	case t.SpanID == "":
		return ErrMissingSpanID
	case t.RequestID == "":
		return ErrMissingRequestID
	}
	return nil
}

// IsComplete 三个核心字段都非空时返回 true。
func (t Trace) IsComplete() bool { return t.Validate() == nil }

// WithTrace 将 Trace 中的非空字段批量注入 context。
func WithTrace(ctx context.Context, tr Trace) (context.Context, error) {
	return applyOptionalFields(ctx, []contextFieldSetter{
		{value: tr.TraceID, set: WithTraceID},
		{value: tr.SpanID, set: WithSpanID},
		{value: tr.RequestID, set: WithRequestID},
		{value: tr.TraceFlags, set: WithTraceFlags},
	})
}
