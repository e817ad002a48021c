// Package xctx 提供请求执行上下文（context.Context）的存取层。
//
// xctx 是所有传播能力的底层存储：上层的 xbridge（通道合并）、
// xasync（跨边界快照）、xtrace（传输层提取/注入）都通过 xctx 读写 context。
//
// # 核心功能
//
// 显式通道（Explicit Channel）- 挂在 context 上的 Carrier：
//   - WithCarrier(ctx, c) : 直接替换当前 Carrier（不合并）
//   - Carrier(ctx)        : 读取当前 Carrier
//
// 注意：WithCarrier 是"替换"语义，会丢弃此前安装的条目。
// 需要保留环境通道（ambient）条目时，请使用 xbridge.Install。
//
// 追踪信息（Trace）- 分布式追踪：
//   - trace_id     : 追踪标识（W3C 规范，128-bit）
//   - span_id      : 跨度标识（W3C 规范，64-bit）
//   - request_id   : 请求标识
//   - trace_flags  : 追踪标志（W3C 规范，可选字段，不参与 IsComplete 检查）
//
// 跟踪标识（Tracking ID）- 传播正确性探针：
//   - AmbientTrackingID  : 由环境通道写入的跟踪标识
//   - ExplicitTrackingID : 由显式通道写入的跟踪标识
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：从 context 读取值，缺失时返回零值
//	RequireXxx(ctx)        - 强制读取：值必须存在，缺失时返回错误
//	EnsureXxx(ctx)         - 确保存在：若已存在则返回，否则自动生成
//	GetXxx(ctx)            - 批量读取：返回结构体
//
// # 错误分类
//
//	ErrNilContext        - context 为 nil
//	ErrContextMissing    - 必需的上下文键缺失（传播缺陷，必须显式失败）
//	ErrContextMismatch   - 两个通道读出的值不一致（*MismatchError）
//	ErrBoundaryLost      - 跨并发边界后上下文丢失
//	ErrMissingTraceID    - trace_id 缺失
//	ErrMissingSpanID     - span_id 缺失
//	ErrMissingRequestID  - request_id 缺失
//
// 上下文正确性错误不应重试：重试无法修复传播缺陷。
package xctx
