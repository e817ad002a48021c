package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xctx"
)

// ErrNilHandler NewEnrichHandler 的 base 为 nil。
var ErrNilHandler = errors.New("xlog: base handler is nil")

// 开启 carrier 输出时使用的分组名。
const (
	GroupView    = "view"
	GroupAmbient = "ambient"
)

// EnrichHandler 包装 slog.Handler，在 Handle 时追加 ctx 中的追踪字段
// 与两个通道的跟踪标识。字段缺失时跳过，不影响日志输出。
//
// 开启 carrier 输出后，额外把显式视图与 ambient 快照的全部条目
// 分别写入 GroupView / GroupAmbient 分组，排查传播问题时使用。
type EnrichHandler struct {
	base    slog.Handler
	carrier bool
}

// EnrichOption EnrichHandler 选项。
type EnrichOption func(*EnrichHandler)

// WithCarrierDump 输出完整的显式视图与 ambient 快照。
func WithCarrierDump() EnrichOption {
	return func(h *EnrichHandler) { h.carrier = true }
}

// NewEnrichHandler 创建 EnrichHandler。
func NewEnrichHandler(base slog.Handler, opts ...EnrichOption) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	h := &EnrichHandler{base: base}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// trace 4 + tracking 2 + 分组 2
const maxEnrichAttrs = 8

// Handle 追加字段前先 Clone record，避免影响同一 record 的其他 handler。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.base.Handle(ctx, r)
	}
	var buf [maxEnrichAttrs]slog.Attr
	attrs := xctx.AppendTraceAttrs(buf[:0], ctx)
	attrs = xctx.AppendTrackingAttrs(attrs, ctx)
	if h.carrier {
		if view, ok := xctx.Carrier(ctx); ok && !view.IsEmpty() {
			attrs = append(attrs, xctx.CarrierAttrs(GroupView, view))
		}
		if amb, ok := xbridge.CurrentAmbient(ctx); ok && !amb.IsEmpty() {
			attrs = append(attrs, xctx.CarrierAttrs(GroupAmbient, amb))
		}
	}
	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs), carrier: h.carrier}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name), carrier: h.carrier}
}
