package xfilter

import (
	"context"
	"fmt"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/reactive/xflow"
)

// WriteFunc 根据请求变换环境通道。
type WriteFunc func(req *Request, c xcarrier.Carrier) xcarrier.Carrier

// InstallFunc 根据请求生成要安装到显式通道的 Carrier。
type InstallFunc func(ctx context.Context, req *Request) (xcarrier.Carrier, error)

type contextWrite struct {
	order int
	name  string
	fn    WriteFunc
}

// ContextWrite 返回在 Proceed 结果上写入环境通道的过滤器。
// 写入只对内层可见。
func ContextWrite(order int, name string, fn WriteFunc) Filter {
	return contextWrite{order: order, name: name, fn: fn}
}

func (f contextWrite) Order() int   { return f.order }
func (f contextWrite) Name() string { return f.name }

func (f contextWrite) DoFilter(req *Request, chain Chain) xflow.Mono[*Response] {
	return chain.Proceed(req).ContextWrite(func(c xcarrier.Carrier) xcarrier.Carrier {
		return f.fn(req, c)
	})
}

type install struct {
	order int
	name  string
	fn    InstallFunc
}

// Install 返回在显式通道安装 Carrier 的过滤器。
//
// 安装经 xbridge.Install 与已有视图合并，外层已写入的环境通道条目保持可见。
func Install(order int, name string, fn InstallFunc) Filter {
	return Suspending(install{order: order, name: name, fn: fn})
}

func (f install) Order() int   { return f.order }
func (f install) Name() string { return f.name }

func (f install) Filter(ctx context.Context, req *Request, chain Chain) (*Response, error) {
	c, err := f.fn(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("xfilter: %s: %w", f.name, err)
	}
	if ctx, err = xbridge.Install(ctx, c); err != nil {
		return nil, err
	}
	return Next(ctx, chain, req)
}

func nameOf(v any) string {
	if n, ok := v.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}
