package xctx

import (
	"context"
	"log/slog"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
)

// =============================================================================
// Trace slog 集成
// =============================================================================

// AppendTraceAttrs 将 context 中的追踪信息追加到现有切片。
// 只追加非空字段，调用方可传入预分配的切片避免热路径分配。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}

	if v := TraceID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceID, v))
	}
	if v := SpanID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeySpanID, v))
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	if v := TraceFlags(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceFlags, v))
	}

	return attrs
}

// TraceAttrs 从 context 提取追踪信息，转换为 slog.Attr 切片。
// 都为空时返回 nil。
func TraceAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs := AppendTraceAttrs(make([]slog.Attr, 0, traceFieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// =============================================================================
// Carrier slog 集成
// =============================================================================

// AppendTrackingAttrs 将显式通道 Carrier 中的两个跟踪标识追加到切片。
func AppendTrackingAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	c, ok := Carrier(ctx)
	if !ok {
		return attrs
	}
	if v, ok := xcarrier.Get(c, AmbientTrackingID); ok {
		attrs = append(attrs, slog.String(AmbientTrackingID.Name(), v))
	}
	if v, ok := xcarrier.Get(c, ExplicitTrackingID); ok {
		attrs = append(attrs, slog.String(ExplicitTrackingID.Name(), v))
	}
	return attrs
}

// CarrierAttrs 将 Carrier 中的所有条目转换为一个 slog 分组属性。
// Carrier 为空时返回空属性（会被 slog 忽略）。
func CarrierAttrs(group string, c xcarrier.Carrier) slog.Attr {
	if c.IsEmpty() {
		return slog.Attr{}
	}
	attrs := make([]any, 0, c.Len())
	c.Range(func(name string, value any) bool {
		attrs = append(attrs, slog.Any(name, value))
		return true
	})
	return slog.Group(group, attrs...)
}
