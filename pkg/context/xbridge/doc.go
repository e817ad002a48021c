// Package xbridge 连接环境通道（ambient）与显式通道（explicit）。
//
// 两个通道：
//   - 环境通道：流水线（xflow）逐级显式传递的 Carrier，订阅时作为参数传入
//   - 显式通道：挂在 context.Context 上的 Carrier（见 xctx.WithCarrier）
//
// 两者本不相通。xbridge 在两处把它们接上：
//
//	Enter   : 流水线进入可挂起函数时，记录环境快照，并把它合并到显式视图之下
//	Install : 在显式通道安装新条目时，与已有视图（或环境快照）合并，而非替换
//
// # 合并策略
//
// 键冲突时显式通道胜出：Install 传入的 Carrier 覆盖已有视图中的同名条目，
// Enter 时已存在的显式视图覆盖环境快照中的同名条目。策略是确定的，
// 与调用时序无关。
//
// 没有环境快照时 Install 仍然成功，视图仅包含被安装的 Carrier。
//
// # 传输层
//
// InjectBaggage / ExtractBaggage 将视图中的字符串条目编解码为 W3C baggage，
// 用于跨进程传播。只有已注册为 string 类型的键会被提取。
package xbridge
