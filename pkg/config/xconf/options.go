package xconf

// Options 加载选项。
type Options struct {
	Delim string
	Tag   string

	defaults       []byte
	defaultsFormat Format
}

// Option 加载选项函数。
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{Delim: ".", Tag: "koanf"}
}

// WithDelim 键分隔符，默认 "."。
func WithDelim(delim string) Option {
	return func(o *Options) { o.Delim = delim }
}

// WithTag Unmarshal 使用的结构体标签，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *Options) { o.Tag = tag }
}

// WithDefaults 设置默认值文档，载入顺序在配置文件之前。
func WithDefaults(data []byte, format Format) Option {
	return func(o *Options) {
		o.defaults = data
		o.defaultsFormat = format
	}
}
