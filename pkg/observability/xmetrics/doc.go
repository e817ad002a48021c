// Package xmetrics 提供请求级观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr；默认实现基于 OpenTelemetry。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xfilter",
//		Operation: "POST /trigger",
//		Kind:      xmetrics.KindServer,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标
//
//   - xprop.operation.total: counter，属性 component / operation / status
//   - xprop.operation.duration: histogram（秒），属性同上
//   - xprop.operation.inflight: up-down counter，属性 component / operation
//   - xprop.propagation.errors: counter，仅 status 为 missing 或 mismatch 时记录
//
// status 除 ok、error 外，还区分上下文传播故障 missing 与 mismatch，
// 便于单独告警。跟踪标识（KeyTrackingID）只写入跨度属性。
package xmetrics
