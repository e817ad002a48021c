// Package xfilter 提供有序、嵌套执行的服务端过滤器链。
//
// 每个 Filter 有一个 Order，数值小的在外层先执行。执行是嵌套的：
//
//	Dispatching : 过滤器在调用 chain.Proceed 之前的阶段
//	InHandler   : 终端 Handler 正在执行
//	Unwinding   : 内层返回后，过滤器处理出站结果的阶段
//
// 入站按 Order 升序，出站按 Order 降序。
//
// # 两种写入方式
//
//	ContextWrite : 在 Proceed 的结果上做环境通道写入（只影响内层）
//	Install      : 在显式通道安装 Carrier（经 xbridge.Install 合并，不替换）
//
// # 可挂起过滤器
//
// SuspendFilter 以普通函数形式编写，通过 Suspending 适配为 Filter，
// 在函数内用 Next 调用剩余链路。Next 会把当前显式视图作为环境通道交给内层。
//
// # 错误映射
//
// Pipeline.ServeHTTP 将错误映射为响应：
//
//	xctx.ErrContextMismatch → 409，X-Propagation-Error: mismatch
//	xctx.ErrContextMissing  → 500，X-Propagation-Error: missing
//	其他                    → 500
package xfilter
