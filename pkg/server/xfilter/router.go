package xfilter

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Router 按 "METHOD /path" 精确匹配的终端 Handler。
type Router struct {
	mu     sync.RWMutex
	routes map[string]map[string]Handler // path -> method -> handler
}

// NewRouter 创建空 Router。
func NewRouter() *Router {
	return &Router{routes: make(map[string]map[string]Handler)}
}

// Route 注册路由，重复注册时后者覆盖前者。
func (r *Router) Route(method, path string, h Handler) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	methods, ok := r.routes[path]
	if !ok {
		methods = make(map[string]Handler)
		r.routes[path] = methods
	}
	methods[strings.ToUpper(method)] = h
	return r
}

// RouteFunc 以函数注册路由。
func (r *Router) RouteFunc(method, path string, fn HandlerFunc) *Router {
	return r.Route(method, path, fn)
}

// Handle 实现 Handler，方法名不区分大小写。路径不存在返回 404，方法不匹配返回 405 并带 Allow 头。
func (r *Router) Handle(ctx context.Context, req *Request) (*Response, error) {
	r.mu.RLock()
	methods, ok := r.routes[req.Path]
	var h Handler
	if ok {
		h = methods[strings.ToUpper(req.Method)]
	}
	var allow []string
	if ok && h == nil {
		for m := range methods {
			allow = append(allow, m)
		}
	}
	r.mu.RUnlock()

	switch {
	case !ok:
		return Text(http.StatusNotFound, "not found"), nil
	case h == nil:
		slices.Sort(allow)
		resp := Text(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", strings.Join(allow, ", "))
		return resp, nil
	}
	return h.Handle(ctx, req)
}
