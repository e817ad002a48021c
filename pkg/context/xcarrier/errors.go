package xcarrier

import "errors"

var (
	// ErrNotFound 表示 Carrier 中不存在指定的 key（或值类型不匹配）。
	ErrNotFound = errors.New("xcarrier: key not found")

	// ErrEmptyKeyName 表示 key 名称为空。
	ErrEmptyKeyName = errors.New("xcarrier: empty key name")

	// ErrKeyConflict 表示同名 key 已以不同的值类型注册。
	ErrKeyConflict = errors.New("xcarrier: key registered with a different type")
)
