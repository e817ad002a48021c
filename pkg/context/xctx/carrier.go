package xctx

import (
	"context"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
)

// 跟踪标识 key（以 Carrier 条目形式存在）
var (
	// AmbientTrackingID 由环境通道（流水线 ContextWrite）写入的跟踪标识。
	AmbientTrackingID = xcarrier.MustKey[string]("ambient_tracking_id")

	// ExplicitTrackingID 由显式通道（Install）写入的跟踪标识。
	ExplicitTrackingID = xcarrier.MustKey[string]("explicit_tracking_id")
)

// KeyTrackingID 跟踪标识的逻辑键名，用于日志和错误描述。
const KeyTrackingID = "tracking_id"

const keyCarrier = contextKey("xctx:carrier")

// WithCarrier 将 c 设为 context 的显式通道 Carrier。
//
// 替换语义：此前安装的 Carrier 会被完全遮蔽。
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithCarrier(ctx context.Context, c xcarrier.Carrier) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyCarrier, c), nil
}

// Carrier 读取 context 的显式通道 Carrier。
// 未安装时返回空 Carrier 和 false。
func Carrier(ctx context.Context) (xcarrier.Carrier, bool) {
	if ctx == nil {
		return xcarrier.Empty(), false
	}
	c, ok := ctx.Value(keyCarrier).(xcarrier.Carrier)
	return c, ok
}
