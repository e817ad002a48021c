package xfilter

import (
	"context"
	"net/http"

	"github.com/omeyang/xprop/pkg/reactive/xflow"
)

// Request 过滤器链处理的请求。
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewRequest 创建请求，header 为 nil 时初始化为空。
func NewRequest(method, path string, header http.Header, body []byte) *Request {
	if header == nil {
		header = make(http.Header)
	}
	return &Request{Method: method, Path: path, Header: header, Body: body}
}

// Response 过滤器链产生的响应。
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Text 返回 text/plain 响应。
func Text(status int, body string) *Response {
	h := make(http.Header)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return &Response{Status: status, Header: h, Body: []byte(body)}
}

// Chain 剩余链路的句柄。
type Chain interface {
	Proceed(req *Request) xflow.Mono[*Response]
}

// Filter 过滤器。Order 越小越靠外。
type Filter interface {
	Order() int
	DoFilter(req *Request, chain Chain) xflow.Mono[*Response]
}

// Handler 链路终端，以可挂起函数形式执行。
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc 函数适配器。
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handle 实现 Handler。
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Named 可选接口，提供用于日志与阶段回调的名称。
type Named interface {
	Name() string
}
