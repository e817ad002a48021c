package xrun

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xprop/pkg/observability/xlog"
)

// Group 管理一组服务的并发运行与协调关闭。Go 与 Cancel 可并发调用，Wait 只调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 返回 Group 和它的 ctx；nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Go 启动服务；返回非 nil 错误会取消其他服务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.GoWithName("", fn)
}

// GoWithName 同 Go，并记录服务的启动与退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		if name == "" {
			return fn(g.ctx)
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
		g.opts.log().Debug(g.ctx, "service starting", attrs...)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.log().Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.log().Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Wait 等待全部服务退出，返回规则见包文档。
func (g *Group) Wait() error {
	defer g.cancel(nil)
	err := g.eg.Wait()

	// causeCtx 未取消时的 context.Canceled 来自服务内部，原样返回
	if err != nil && !(errors.Is(err, context.Canceled) && g.causeCtx.Err() != nil) {
		return err
	}
	if g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return nil
}

// Cancel 以 cause 取消所有服务，Wait 返回 cause。cause 不应包装 context.Canceled。
func (g *Group) Cancel(cause error) { g.cancel(cause) }

// Context 返回 Group 的 ctx。
func (g *Group) Context() context.Context { return g.ctx }

// Run 创建 Group、监听信号并运行 services，直到全部退出。
func Run(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(g.waitSignal(signals))
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

// testSigKey 测试通过 ctx 注入信号，避免发送真实信号。
type testSigKey struct{}

func (g *Group) waitSignal(signals []os.Signal) func(context.Context) error {
	return func(ctx context.Context) error {
		testc, _ := ctx.Value(testSigKey{}).(<-chan os.Signal)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-testc:
		case sig = <-sigCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		g.opts.log().Info(ctx, "received signal",
			slog.String("group", g.opts.name), slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	}
}

// Drain 返回在 ctx 结束后执行 fn 的服务，fn 获得独立的 timeout 预算，
// 用于关闭调度器等需要排空的资源。timeout <= 0 表示不限时。
func Drain(timeout time.Duration, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		<-ctx.Done()
		stopCtx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			stopCtx, cancel = context.WithTimeout(stopCtx, timeout)
			defer cancel()
		}
		return fn(stopCtx)
	}
}

// HTTPServerInterface *http.Server 满足此接口。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 将 server 包装为服务：ctx 结束时 Shutdown，返回 Shutdown 的错误。
// shutdownTimeout <= 0 表示等待全部在途请求完成。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		listenDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				stopCtx := context.WithoutCancel(ctx)
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					stopCtx, cancel = context.WithTimeout(stopCtx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(stopCtx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			close(listenDone)
			return err
		}
		select {
		case err := <-shutdownErr:
			return err
		case <-ctx.Done():
			return <-shutdownErr
		default:
			// 外部直接调用了 Shutdown
			close(listenDone)
			return nil
		}
	}
}
