// Package xasync 提供跨并发边界的上下文传递。
//
// 每次跨越边界（切换到另一个 worker pool、定时挂起后恢复）时：
//
//  1. 在出发点 Capture 当前上下文，得到不可变的 Snapshot
//  2. 在目标调度器上以"空白"上下文开始执行
//  3. 先 Restore 快照，再运行任何请求相关的代码
//
// 目标侧只能看到快照中的内容：两个通道的 Carrier、追踪字段、
// OpenTelemetry span 与 baggage。调用方的取消信号和截止时间保留。
//
// # 边界类型
//
//	Offload  : 切换到另一个调度器执行并等待结果
//	Go       : 切换到另一个调度器执行，返回 *Pending 供稍后 Await
//	Sleep    : 定时挂起（在当前 goroutine 上等待，可被 ctx 取消）
//	Suspend  : 定时挂起后在指定调度器上恢复续体（continuation）
//
// # 调度器
//
// Scheduler 是最小调度接口。PoolScheduler 基于 xpool 固定大小 worker pool，
// Inline 在调用方 goroutine 上同步执行（用于测试）。
//
// 任务中的 panic 被恢复，并以 ErrTaskPanic 从 Await 返回。
package xasync
