// Package xlog 基于 log/slog 的结构化日志。
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：第一个配置错误之后的 Set 调用被忽略，
// 错误在 Build 时返回。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation(xrotate.DefaultConfig("/var/log/xpropd.log")).
//		SetAttrs(slog.String("service", "xpropd")).
//		Build()
//
// # 上下文注入
//
// EnrichHandler（默认启用）在每条日志上追加 ctx 中的 trace_id、span_id、
// request_id、trace_flags，以及显式通道视图中的 ambient_tracking_id 与
// explicit_tracking_id。传播故障因此可以直接在日志里对照两个通道的值。
//
// 对启用 enrich 的 logger 调用 WithGroup 后，注入字段会落在该 group 下。
//
// # 全局 Logger
//
// 库代码通过 [Debug]、[Info]、[Warn]、[Error]、[Stack] 记录日志，
// 服务启动时用 [SetDefault] 替换。
//
// # 动态级别
//
// Build 返回 [LoggerWithLevel]；派生 logger 共享同一个 LevelVar，
// 配置热更新时调用 SetLevel 即可全局生效。
package xlog
