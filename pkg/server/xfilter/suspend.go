package xfilter

import (
	"context"

	"github.com/omeyang/xprop/pkg/reactive/xflow"
)

// SuspendFilter 以可挂起函数形式编写的过滤器。
type SuspendFilter interface {
	Order() int
	Filter(ctx context.Context, req *Request, chain Chain) (*Response, error)
}

// Suspending 将 SuspendFilter 适配为 Filter。
//
// 执行时先以 xbridge.Enter 记录外层传入的环境通道。
func Suspending(f SuspendFilter) Filter {
	return suspending{f: f}
}

type suspending struct {
	f SuspendFilter
}

func (s suspending) Order() int { return s.f.Order() }

func (s suspending) Name() string { return nameOf(s.f) }

func (s suspending) DoFilter(req *Request, chain Chain) xflow.Mono[*Response] {
	return xflow.FromFunc(func(ctx context.Context) (*Response, error) {
		return s.f.Filter(ctx, req, chain)
	})
}

// Next 在可挂起过滤器中调用剩余链路。
// ctx 的当前视图成为内层的环境通道。
func Next(ctx context.Context, chain Chain, req *Request) (*Response, error) {
	return xflow.Await(ctx, chain.Proceed(req))
}
