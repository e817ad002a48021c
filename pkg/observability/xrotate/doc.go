// Package xrotate 提供日志文件轮转，基于 lumberjack v2 按大小轮转。
//
// Config 可直接由 xconf 解码（koanf 标签），再交给 xlog.Builder.SetRotation。
package xrotate
