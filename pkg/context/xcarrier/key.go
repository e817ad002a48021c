package xcarrier

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Key 是静态绑定值类型 T 的 Carrier 键。
//
// Key 是可比较的值类型，零值 Key 无效（名称为空），
// 只能通过 NewKey 或 MustKey 创建。
type Key[T any] struct {
	name string
}

// Name 返回 key 名称。
func (k Key[T]) Name() string {
	return k.name
}

// String 实现 fmt.Stringer，便于日志输出。
func (k Key[T]) String() string {
	return k.name
}

// registry 进程级 key 注册表：name -> reflect.Type
var registry sync.Map

// NewKey 创建（或复用）名为 name、值类型为 T 的 key。
//
// 同一名称以相同类型多次注册是幂等的，返回等价的 Key。
// 以不同类型注册时返回 ErrKeyConflict。
func NewKey[T any](name string) (Key[T], error) {
	if name == "" {
		return Key[T]{}, ErrEmptyKeyName
	}
	typ := reflect.TypeFor[T]()
	actual, loaded := registry.LoadOrStore(name, typ)
	if loaded {
		if registered, ok := actual.(reflect.Type); ok && registered != typ {
			return Key[T]{}, fmt.Errorf("%w: %q is %v, requested %v", ErrKeyConflict, name, registered, typ)
		}
	}
	return Key[T]{name: name}, nil
}

// MustKey 与 NewKey 相同，但出错时 panic。
// 适用于包级 key 变量的声明。
func MustKey[T any](name string) Key[T] {
	k, err := NewKey[T](name)
	if err != nil {
		panic(err)
	}
	return k
}

// Registered 返回已注册的 key 名称（按字典序）。
func Registered() []string {
	var names []string
	registry.Range(func(k, _ any) bool {
		if name, ok := k.(string); ok {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

// TypeOf 返回已注册 key 的值类型，未注册时 ok 为 false。
func TypeOf(name string) (reflect.Type, bool) {
	v, ok := registry.Load(name)
	if !ok {
		return nil, false
	}
	typ, ok := v.(reflect.Type)
	return typ, ok
}
