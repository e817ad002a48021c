package xpool

import "github.com/omeyang/xprop/pkg/observability/xlog"

// Option Pool 配置项。
type Option func(*options)

type options struct {
	logger       xlog.Logger
	name         string
	logTaskValue bool
}

// log 未设置 logger 时使用全局 logger，SetDefault 之后的替换也能生效。
func (o *options) log() xlog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return xlog.Default()
}

// WithLogger 设置 panic 日志的输出目标。nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 pool 名称，作为日志中的 scheduler 属性。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogTaskValue panic 日志中附带任务值。任务可能含请求数据，默认关闭。
func WithLogTaskValue() Option {
	return func(o *options) {
		o.logTaskValue = true
	}
}
