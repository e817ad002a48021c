package xmetrics

import "errors"

// ErrCreateInstrument NewOTelObserver 无法创建某个指标，错误信息带指标名。
var ErrCreateInstrument = errors.New("xmetrics: create instrument failed")
