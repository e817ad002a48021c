// Package xharness 端到端验证请求上下文传播。
//
// Run 并发发送 Count 个请求，每个请求在 X-TrackingId 头中携带新生成的 uuid，
// 服务端应在穿越全部并发边界后把解析出的标识原样作为响应体返回。
// 响应体与发送值不一致记为 Mismatch；响应体等于另一个请求的标识时
// 额外标记为 Leaked（跨请求串扰）。
//
//	report, err := xharness.Run(ctx, xharness.Config{BaseURL: "http://127.0.0.1:8080"})
//	if err != nil {
//		return err
//	}
//	if !report.OK() {
//		return report.Err()
//	}
//
// 传输错误按 Attempts 重试；context 错误与非 2xx 响应不重试。
package xharness
