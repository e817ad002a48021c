package probe

import (
	"context"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xtrace"
	"github.com/omeyang/xprop/pkg/server/xfilter"
)

// 过滤器顺序
const (
	OrderExplicit = 0
	OrderAmbient  = 1
)

// ExplicitFilter 将请求头中的标识安装到显式通道，请求头缺失时透传。
func ExplicitFilter() xfilter.Filter {
	return xfilter.Install(OrderExplicit, "explicit-tracking",
		func(_ context.Context, req *xfilter.Request) (xcarrier.Carrier, error) {
			if id := req.Header.Get(xtrace.HeaderTrackingID); id != "" {
				return xcarrier.Of(xctx.ExplicitTrackingID, id), nil
			}
			return xcarrier.Empty(), nil
		})
}

// AmbientFilter 将请求头中的标识写入环境通道，请求头缺失时透传。
func AmbientFilter() xfilter.Filter {
	return xfilter.ContextWrite(OrderAmbient, "ambient-tracking",
		func(req *xfilter.Request, c xcarrier.Carrier) xcarrier.Carrier {
			if id := req.Header.Get(xtrace.HeaderTrackingID); id != "" {
				return xcarrier.With(c, xctx.AmbientTrackingID, id)
			}
			return c
		})
}

// Filters 返回两个跟踪过滤器。
func Filters() []xfilter.Filter {
	return []xfilter.Filter{ExplicitFilter(), AmbientFilter()}
}
