// Package probe 传播验证用的参考服务。
//
// 两个过滤器从 X-TrackingId 头分别写入两个通道：
//
//	order 0  explicit-tracking  显式通道安装 explicit_tracking_id
//	order 1  ambient-tracking   环境通道写入 ambient_tracking_id
//
// POST /trigger 依次穿越全部边界类型后读取两个标识并校验一致，
// 响应体即解析出的标识；GET /data 返回环境通道的标识。
package probe
