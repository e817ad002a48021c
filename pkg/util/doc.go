// Package util 通用工具子包。
//
// 子包列表：
//   - xpool: 泛型 Worker Pool，固定 worker 数与队列长度，支持优雅关闭
//   - xid: 基于 Sonyflake 的请求标识
package util
