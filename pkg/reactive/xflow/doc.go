// Package xflow 提供单值惰性流水线 Mono，并显式传递环境通道 Carrier。
//
// 每个 Mono 在订阅时收到两样东西：
//
//	ctx : 显式通道（以及取消信号）
//	amb : 环境通道 Carrier，由下游向上游逐级传递
//
// 环境通道不依赖任何隐式存储：每个阶段都在签名里接收并向上游传递它。
//
// # 语义
//
//   - 惰性：构造 Mono 不执行任何逻辑，Subscribe 时才执行
//   - ContextWrite 只影响它上游的阶段（与订阅方向一致）
//   - FromFunc 是进入可挂起函数的桥：用 xbridge.Enter 把 amb 记录到 ctx
//   - Await 是反方向的桥：以 ctx 当前视图作为 amb 订阅
//
// 示例：
//
//	m := xflow.FromFunc(handler).
//		ContextWrite(func(c xcarrier.Carrier) xcarrier.Carrier {
//			return xcarrier.With(c, xctx.AmbientTrackingID, id)
//		}).
//		SubscribeOn(io)
//	v, err := xflow.Await(ctx, m)
package xflow
