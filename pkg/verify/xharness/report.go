package xharness

import (
	"errors"
	"fmt"
	"time"
)

// Mismatch 一次响应体与发送值不一致。
type Mismatch struct {
	Sent string
	Got  string
	// Leaked Got 是本轮另一个请求的标识。
	Leaked bool
}

// Failure 一次未得到 2xx 响应的请求。
type Failure struct {
	ID  string
	Err error
}

// Report 一轮验证的结果。
type Report struct {
	Sent       int
	Matched    int
	Mismatches []Mismatch
	Failures   []Failure
	Elapsed    time.Duration
}

// OK 全部请求都返回了自己的标识。
func (r Report) OK() bool {
	return r.Sent > 0 && r.Matched == r.Sent && len(r.Mismatches) == 0 && len(r.Failures) == 0
}

// Leaked 返回串扰次数。
func (r Report) Leaked() int {
	n := 0
	for _, m := range r.Mismatches {
		if m.Leaked {
			n++
		}
	}
	return n
}

// Err 汇总结果为错误，OK 时返回 nil。
//
// 返回值满足 errors.Is(err, ErrMismatch) 和/或 errors.Is(err, ErrRequestFailed)。
func (r Report) Err() error {
	var errs []error
	if n := len(r.Mismatches); n > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d (leaked %d), first sent=%q got=%q",
			ErrMismatch, n, r.Sent, r.Leaked(), r.Mismatches[0].Sent, r.Mismatches[0].Got))
	}
	if n := len(r.Failures); n > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d, first: %w",
			ErrRequestFailed, n, r.Sent, r.Failures[0].Err))
	}
	return errors.Join(errs...)
}
