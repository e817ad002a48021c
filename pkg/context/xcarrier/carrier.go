package xcarrier

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Carrier 不可变的 key/value 载体。
//
// 零值为空 Carrier，可直接使用。所有写操作返回新实例，
// 内部 map 创建后不再修改，因此并发读取无需加锁。
type Carrier struct {
	entries map[string]any
}

// Empty 返回空 Carrier。
func Empty() Carrier {
	return Carrier{}
}

// Of 返回只包含一个条目的 Carrier。
func Of[T any](key Key[T], value T) Carrier {
	return With(Carrier{}, key, value)
}

// With 返回在 c 基础上将 key 设为 value 的新 Carrier。
//
// c 本身不变；除被覆盖的 key 外，c 的所有条目都保留在新 Carrier 中。
// 零值 key（名称为空）被忽略，原样返回 c。
func With[T any](c Carrier, key Key[T], value T) Carrier {
	if key.name == "" {
		return c
	}
	next := make(map[string]any, len(c.entries)+1)
	maps.Copy(next, c.entries)
	next[key.name] = value
	return Carrier{entries: next}
}

// Get 读取 key 对应的值。
//
// key 不存在，或存储值的动态类型与 key 的静态类型不一致时，返回零值和 false。
func Get[T any](c Carrier, key Key[T]) (T, bool) {
	var zero T
	v, ok := c.entries[key.name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Require 读取 key 对应的值，缺失时返回包装了 key 名称的 ErrNotFound。
func Require[T any](c Carrier, key Key[T]) (T, error) {
	v, ok := Get(c, key)
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrNotFound, key.name)
	}
	return v, nil
}

// Without 返回移除了名为 name 的条目的新 Carrier。
// name 不存在时原样返回 c。
func Without(c Carrier, name string) Carrier {
	if _, ok := c.entries[name]; !ok {
		return c
	}
	next := make(map[string]any, len(c.entries)-1)
	for k, v := range c.entries {
		if k != name {
			next[k] = v
		}
	}
	return Carrier{entries: next}
}

// Merge 合并两个 Carrier，键冲突时 overlay 胜出。
//
// 任一侧为空时直接返回另一侧，不分配新 map。
func Merge(base, overlay Carrier) Carrier {
	if len(overlay.entries) == 0 {
		return base
	}
	if len(base.entries) == 0 {
		return overlay
	}
	next := make(map[string]any, len(base.entries)+len(overlay.entries))
	maps.Copy(next, base.entries)
	maps.Copy(next, overlay.entries)
	return Carrier{entries: next}
}

// Has 判断是否存在名为 name 的条目。
func (c Carrier) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Len 返回条目数量。
func (c Carrier) Len() int {
	return len(c.entries)
}

// IsEmpty 判断 Carrier 是否为空。
func (c Carrier) IsEmpty() bool {
	return len(c.entries) == 0
}

// Keys 返回所有条目名称（按字典序）。
func (c Carrier) Keys() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Range 按名称字典序遍历所有条目，fn 返回 false 时停止。
func (c Carrier) Range(fn func(name string, value any) bool) {
	for _, k := range c.Keys() {
		if !fn(k, c.entries[k]) {
			return
		}
	}
}

// Strings 返回所有字符串类型条目的副本。
// 用于跨进程传播（如 W3C baggage），非字符串值被跳过。
func (c Carrier) Strings() map[string]string {
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// String 返回调试用的文本表示，如 "{a=1, b=x}"。
func (c Carrier) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range c.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, c.entries[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
