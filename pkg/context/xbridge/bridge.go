package xbridge

import (
	"context"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
)

type contextKey struct{}

// ambientKey 环境快照在 context 中的存储键。
var ambientKey contextKey

// Enter 在可挂起函数入口记录环境快照 ambient。
//
// 快照被合并到显式视图之下：视图中已有的条目优先；视图为空时直接以快照作为视图。
// 如果 ctx 为 nil，返回 xctx.ErrNilContext。
func Enter(ctx context.Context, ambient xcarrier.Carrier) (context.Context, error) {
	if ctx == nil {
		return nil, xctx.ErrNilContext
	}
	ctx = context.WithValue(ctx, ambientKey, ambient)
	view, _ := xctx.Carrier(ctx)
	return xctx.WithCarrier(ctx, xcarrier.Merge(ambient, view))
}

// CurrentAmbient 返回最近一次 Enter 记录的环境快照。
// 从未 Enter 时返回空 Carrier 和 false。
func CurrentAmbient(ctx context.Context) (xcarrier.Carrier, bool) {
	if ctx == nil {
		return xcarrier.Empty(), false
	}
	c, ok := ctx.Value(ambientKey).(xcarrier.Carrier)
	return c, ok
}

// Install 在显式通道安装 c，与已有内容合并。
//
// 合并基线依次取：当前显式视图、环境快照、空 Carrier。c 的条目在冲突时胜出。
// 与 xctx.WithCarrier 不同，Install 不会丢弃已经可见的条目。
func Install(ctx context.Context, c xcarrier.Carrier) (context.Context, error) {
	if ctx == nil {
		return nil, xctx.ErrNilContext
	}
	base, ok := xctx.Carrier(ctx)
	if !ok {
		base, _ = CurrentAmbient(ctx)
	}
	return xctx.WithCarrier(ctx, xcarrier.Merge(base, c))
}

// View 返回当前可见的 Carrier：显式视图优先，其次环境快照。
func View(ctx context.Context) xcarrier.Carrier {
	if c, ok := xctx.Carrier(ctx); ok {
		return c
	}
	c, _ := CurrentAmbient(ctx)
	return c
}

// Lookup 从当前视图读取 key。
func Lookup[T any](ctx context.Context, key xcarrier.Key[T]) (T, bool) {
	return xcarrier.Get(View(ctx), key)
}

// Require 从当前视图读取 key，缺失时返回包装了 xctx.ErrContextMissing 的错误。
func Require[T any](ctx context.Context, key xcarrier.Key[T]) (T, error) {
	v, ok := Lookup(ctx, key)
	if !ok {
		var zero T
		return zero, xctx.MissingError(key.Name())
	}
	return v, nil
}

// ResolveTrackingID 读取两个通道写入的跟踪标识并校验一致。
//
// 任一缺失返回 xctx.ErrContextMissing；不一致返回 *xctx.MismatchError。
func ResolveTrackingID(ctx context.Context) (string, error) {
	ambient, err := Require(ctx, xctx.AmbientTrackingID)
	if err != nil {
		return "", err
	}
	explicit, err := Require(ctx, xctx.ExplicitTrackingID)
	if err != nil {
		return "", err
	}
	if ambient != explicit {
		return "", &xctx.MismatchError{Key: xctx.KeyTrackingID, Ambient: ambient, Explicit: explicit}
	}
	return explicit, nil
}

// State 两个通道的原始状态，用于跨边界时原样恢复。
type State struct {
	View       xcarrier.Carrier
	HasView    bool
	Ambient    xcarrier.Carrier
	HasAmbient bool
}

// CaptureState 读取 ctx 中两个通道的当前状态。
func CaptureState(ctx context.Context) State {
	var s State
	s.View, s.HasView = xctx.Carrier(ctx)
	s.Ambient, s.HasAmbient = CurrentAmbient(ctx)
	return s
}

// Apply 将状态原样写入 ctx，不做合并。
// 未捕获到的通道保持 ctx 原值。
func (s State) Apply(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, xctx.ErrNilContext
	}
	if s.HasAmbient {
		ctx = context.WithValue(ctx, ambientKey, s.Ambient)
	}
	if s.HasView {
		return xctx.WithCarrier(ctx, s.View)
	}
	return ctx, nil
}
