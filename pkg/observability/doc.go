// Package observability 可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog，自动注入追踪与跟踪标识
//   - xrotate: 日志文件轮转
//   - xmetrics: 观测接口与 OpenTelemetry 实现
//   - xtrace: HTTP/gRPC 追踪传播与 server span 过滤器
package observability
