// Package xcarrier 提供不可变的请求级上下文载体（Carrier）。
//
// Carrier 是字符串键到任意类型值的映射，所有"写"操作都返回新的 Carrier，
// 原 Carrier 保持不变。多个 goroutine 可以无锁地并发读取同一个 Carrier。
//
// # 类型化 Key
//
// 每个 Key 在创建时静态绑定值类型，读取时无需类型断言：
//
//	var TenantKey = xcarrier.MustKey[string]("tenant")
//
//	c := xcarrier.Of(TenantKey, "t-001")
//	tenant, ok := xcarrier.Get(c, TenantKey) // tenant 为 string
//
// Key 通过进程级注册表创建：同名 Key 以不同类型再次注册时，
// NewKey 返回 ErrKeyConflict，MustKey panic（适用于包级变量）。
//
// # 命名约定
//
//	With(c, key, v)    - 写入：返回新的 Carrier
//	Get(c, key)        - 读取：返回 (value, ok)
//	Require(c, key)    - 强制读取：缺失时返回 ErrNotFound
//	Merge(base, over)  - 合并：over 在键冲突时胜出
//
// # 不可变性
//
// Carrier 是值类型，零值即空 Carrier。任何操作都不会修改已有实例，
// 两个引用"同一个 Carrier"的位置在其生命周期内始终看到相同的条目。
package xcarrier
