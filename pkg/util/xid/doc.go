// Package xid 基于 Sonyflake 的请求标识生成。
//
// 标识为 base36 编码的 63 位整数（12-13 个字符），按时间单调递增，
// 可用 Decompose 还原出生成时间与机器号，便于从日志反查请求来源节点。
//
// 机器号按以下顺序确定：XPROP_MACHINE_ID 环境变量（0-65535）、
// 主机名哈希、Sonyflake 默认的私有 IP 低 16 位。
package xid
