// Package context 请求上下文相关的子包。
//
// 子包列表：
//   - xcarrier: 不可变的类型化键值载体
//   - xctx: context.Context 中的载体槽位与追踪字段
//   - xbridge: 环境通道与显式通道的合并视图
//
// 所有请求信息通过 context.Context 传递，不使用全局可变状态。
package context
