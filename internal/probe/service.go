package probe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/omeyang/xprop/pkg/async/xasync"
	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xlog"
	"github.com/omeyang/xprop/pkg/reactive/xflow"
	"github.com/omeyang/xprop/pkg/server/xfilter"
)

// DefaultDelay 每个定时挂起点的时长。
const DefaultDelay = 50 * time.Millisecond

// ErrNilScheduler 未提供调度器。
var ErrNilScheduler = errors.New("probe: nil scheduler")

// Service 参考服务。
type Service struct {
	io    xasync.Scheduler
	def   xasync.Scheduler
	delay time.Duration
}

// NewService 创建 Service。io 承载阻塞型工作，def 承载挂起后的续体；
// delay <= 0 时使用 DefaultDelay。
func NewService(io, def xasync.Scheduler, delay time.Duration) (*Service, error) {
	if io == nil || def == nil {
		return nil, ErrNilScheduler
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Service{io: io, def: def, delay: delay}, nil
}

// FindValue 穿越定时挂起、调度器切换和环境管道三类边界后解析跟踪标识。
//
// 两个通道的标识不一致返回 *xctx.MismatchError，任一缺失返回 xctx.ErrContextMissing。
func (s *Service) FindValue(ctx context.Context) (string, error) {
	if err := xasync.Sleep(ctx, s.delay); err != nil {
		return "", err
	}
	return xasync.Suspend(ctx, s.def, s.delay, func(ctx context.Context) (string, error) {
		xlog.Debug(ctx, "probe: resumed", xlog.Scheduler(s.def.Name()))
		return xflow.Await(ctx, xflow.FromFunc(xbridge.ResolveTrackingID))
	}).Await(ctx)
}

// Trigger 处理 POST /trigger：切换到 io 调度器执行 FindValue，响应体为标识。
func (s *Service) Trigger(ctx context.Context, _ *xfilter.Request) (*xfilter.Response, error) {
	id, err := xasync.Offload(ctx, s.io, s.FindValue)
	if err != nil {
		return nil, err
	}
	return xfilter.Text(http.StatusOK, id), nil
}

// Data 处理 GET /data：返回环境通道的标识。
func (s *Service) Data(ctx context.Context, _ *xfilter.Request) (*xfilter.Response, error) {
	id, err := xbridge.Require(ctx, xctx.AmbientTrackingID)
	if err != nil {
		return nil, err
	}
	return xfilter.Text(http.StatusOK, id), nil
}

// Router 返回注册了 /trigger 和 /data 的路由。
func (s *Service) Router() *xfilter.Router {
	return xfilter.NewRouter().
		RouteFunc(http.MethodPost, "/trigger", s.Trigger).
		RouteFunc(http.MethodGet, "/data", s.Data)
}

// NewPipeline 组装跟踪过滤器与路由，opts 追加在其后。
func (s *Service) NewPipeline(opts ...xfilter.Option) *xfilter.Pipeline {
	all := append([]xfilter.Option{xfilter.WithFilters(Filters()...)}, opts...)
	return xfilter.NewPipeline(s.Router(), all...)
}
