package xconf

import "github.com/knadh/koanf/v2"

// Format 配置格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置实例，并发安全。
type Config interface {
	// Client 返回当前 koanf 快照；Reload 后旧快照仍可读，但不再更新。
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置解码到 target，path 为空时解码全部。
	// 字符串形式的 time.Duration（如 "50ms"）会自动转换。
	Unmarshal(path string, target any) error

	Reload() error
	Path() string
	Format() Format
}
