// Package xconf 基于 koanf 的配置加载，支持 YAML/JSON、默认值分层与热重载。
//
// 加载顺序：WithDefaults 提供的文档先载入，配置文件覆盖其上。
// Reload 按同样顺序重建 koanf 实例并原子替换，失败时保留旧配置。
//
// Watch 监视配置文件所在目录（兼容编辑器的原子替换写法），
// 变更经过防抖后调用 Reload 并回调：
//
//	w, _ := xconf.Watch(cfg, func(c xconf.Config, err error) { ... })
//	go w.Run(ctx) // ctx 结束时关闭监视
package xconf
