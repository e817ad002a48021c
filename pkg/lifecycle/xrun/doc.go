// Package xrun 基于 errgroup + context 的进程生命周期管理。
//
// 任一服务返回错误、收到终止信号或父 ctx 取消时，Group 的 ctx 被取消，
// 所有服务应监听 ctx.Done() 退出。收到信号时 Run 返回 *SignalError。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithName("xpropd")},
//		xrun.HTTPServer(srv, 10*time.Second),
//		xrun.Drain(5*time.Second, schedulers.Shutdown),
//	)
//
// Wait 的返回规则：
//   - 服务返回的第一个非取消错误原样返回；
//   - Group 被取消且带显式原因（如 SignalError）时返回该原因；
//   - 普通取消返回 nil。
package xrun
