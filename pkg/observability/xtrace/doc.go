// Package xtrace 提供追踪信息与跟踪标识的传输层传播。
//
// xtrace 只做传输层适配：从 HTTP Header / gRPC Metadata 提取，写入 xctx 与 xbridge；
// 反方向从 context 读取并注入到出站请求。不维护状态。
//
// # 协议
//
// HTTP Header:
//   - X-TrackingId: 请求跟踪标识
//   - X-Trace-ID / X-Span-ID / X-Request-ID: 追踪标识
//   - traceparent / tracestate: W3C Trace Context
//   - baggage: W3C Baggage（见 xbridge.InjectBaggage）
//
// gRPC Metadata 使用对应的小写名称（x-tracking-id、x-trace-id 等）。
//
// # 组件
//
//	HTTPMiddleware             : net/http 中间件，追踪字段写入 xctx
//	ServerFilter               : xfilter 过滤器，包裹 OpenTelemetry server span
//	InjectToRequest            : 出站 HTTP 请求注入
//	GRPCUnaryServerInterceptor : 追踪字段写入 xctx，跟踪标识写入两个通道
//	GRPCUnaryClientInterceptor : 出站 gRPC 调用注入
//
// traceparent 格式：{version}-{trace-id}-{parent-id}-{trace-flags}，
// 例如 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01。
package xtrace
