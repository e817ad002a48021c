// Package xpool 提供固定大小的泛型 worker pool。
//
// Pool 是调度器（xasync.PoolScheduler）的执行底座：固定数量的 worker
// 从有界队列中取任务执行。
//
// # 特性
//
//   - 泛型任务类型
//   - worker 数量 [1, 65536]，队列大小 [1, 16777216]，越界返回错误而非 panic
//   - Submit 非阻塞，队列满返回 ErrQueueFull，关闭后返回 ErrPoolStopped
//   - 单个任务 panic 被恢复并记录堆栈，不影响其他任务
//   - Close 等待队列耗尽；Shutdown(ctx) 支持超时，超时后可通过 Done() 等待残留 worker
//   - Stats 返回提交、拒绝、panic 计数，xpropd 通过 /debug/schedulers 暴露
//
// # 注意事项
//
//   - Close/Shutdown 不可在 handler 内调用，否则会死锁
//   - panic 日志经 xlog 输出，未设置 WithLogger 时使用 xlog.Default()
//   - panic 日志默认只记录任务类型，WithLogTaskValue 可开启完整值输出
package xpool
