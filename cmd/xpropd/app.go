package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xprop/internal/probe"
	"github.com/omeyang/xprop/pkg/async/xasync"
	"github.com/omeyang/xprop/pkg/config/xconf"
	"github.com/omeyang/xprop/pkg/lifecycle/xrun"
	"github.com/omeyang/xprop/pkg/observability/xlog"
	"github.com/omeyang/xprop/pkg/observability/xmetrics"
	"github.com/omeyang/xprop/pkg/observability/xtrace"
	"github.com/omeyang/xprop/pkg/server/xfilter"
	"github.com/omeyang/xprop/pkg/util/xid"
	"github.com/omeyang/xprop/pkg/util/xpool"
)

const serviceName = "xpropd"

type app struct {
	cfg      ServiceConfig
	logger   xlog.LoggerWithLevel
	closeLog func() error
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	io       *xasync.PoolScheduler
	def      *xasync.PoolScheduler
	server   *http.Server
}

// newApp 按配置组装服务。失败时已创建的资源被释放。
func newApp(cfg ServiceConfig) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.init(); err != nil {
		return nil, errors.Join(err, a.shutdown(context.Background()), a.closeLogger())
	}
	return a, nil
}

func (a *app) init() error {
	cfg := a.cfg
	b := xlog.New().
		SetLevelString(cfg.Log.Level).
		SetFormat(cfg.Log.Format).
		SetCarrierDump(cfg.Log.Carrier).
		SetAttrs(slog.String("service", serviceName))
	if rc, ok := cfg.Log.rotation(); ok {
		b.SetRotation(rc)
	}
	var err error
	if a.logger, a.closeLog, err = b.Build(); err != nil {
		return err
	}

	a.tp = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Trace.SampleRatio))),
	)
	a.reader = sdkmetric.NewManualReader()
	a.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(a.reader))
	obs, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(a.tp), xmetrics.WithMeterProvider(a.mp))
	if err != nil {
		return err
	}

	if a.io, err = xasync.NewPoolScheduler("io", cfg.Scheduler.IO.Workers, cfg.Scheduler.IO.Queue, xpool.WithLogger(a.logger)); err != nil {
		return err
	}
	if a.def, err = xasync.NewPoolScheduler("default", cfg.Scheduler.Default.Workers, cfg.Scheduler.Default.Queue, xpool.WithLogger(a.logger)); err != nil {
		return err
	}
	svc, err := probe.NewService(a.io, a.def, cfg.Probe.Delay)
	if err != nil {
		return err
	}
	traceOpts := []xtrace.FilterOption{xtrace.WithTracerProvider(a.tp)}
	if ids, err := newIDGenerator(); err == nil {
		traceOpts = append(traceOpts, xtrace.WithRequestIDGenerator(ids.NewString))
	} else {
		a.logger.Warn(context.Background(), "xpropd: request id generator unavailable", xlog.Err(err))
	}
	pipeline := svc.NewPipeline(
		xfilter.WithFilters(xtrace.ServerFilter(traceOpts...)),
		xfilter.WithObserver(obs),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /debug/stats", a.serveStats)
	mux.HandleFunc("GET /debug/schedulers", a.serveSchedulers)
	mux.Handle("/", pipeline)

	a.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// newIDGenerator 无法确定机器号时退回 Sonyflake 的私有 IP 策略。
func newIDGenerator() (*xid.Generator, error) {
	ids, err := xid.NewGenerator()
	if err == nil {
		return ids, nil
	}
	return xid.NewGenerator(xid.WithMachineID(nil))
}

// run 运行 HTTP 服务与配置监视，直到收到信号或出错。
func (a *app) run(ctx context.Context, conf xconf.Config) error {
	services := []func(context.Context) error{
		xrun.HTTPServer(a.server, a.cfg.Server.ShutdownTimeout),
		xrun.Drain(a.cfg.Server.ShutdownTimeout, a.shutdown),
	}
	if conf != nil && conf.Path() != "" {
		w, err := xconf.Watch(conf, a.onReload)
		if err != nil {
			return err
		}
		services = append(services, w.Run)
	}

	xlog.Info(ctx, "xpropd: listening", slog.String("addr", a.cfg.Server.Addr))
	err := xrun.Run(ctx, []xrun.Option{xrun.WithName(serviceName), xrun.WithLogger(a.logger)}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		xlog.Info(context.Background(), "xpropd: stopped", xlog.Err(err))
		return nil
	}
	return err
}

// onReload 热更新日志级别；其余配置需要重启生效。
func (a *app) onReload(conf xconf.Config, err error) {
	ctx := context.Background()
	if err != nil {
		xlog.Warn(ctx, "xpropd: config reload failed", xlog.Err(err))
		return
	}
	var lc LogConfig
	if err := conf.Unmarshal("log", &lc); err != nil {
		xlog.Warn(ctx, "xpropd: config decode failed", xlog.Err(err))
		return
	}
	level, err := xlog.ParseLevel(lc.Level)
	if err != nil {
		xlog.Warn(ctx, "xpropd: invalid log level", slog.String("level", lc.Level), xlog.Err(err))
		return
	}
	a.logger.SetLevel(level)
	xlog.Info(ctx, "xpropd: log level updated", slog.String("level", level.String()))
}

// shutdown 等待在途请求结束后排空调度器，再关闭 OpenTelemetry provider。
func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	for _, s := range []*xasync.PoolScheduler{a.io, a.def} {
		if s != nil {
			errs = append(errs, s.Shutdown(ctx))
		}
	}
	if a.tp != nil {
		errs = append(errs, a.tp.Shutdown(ctx))
	}
	if a.mp != nil {
		errs = append(errs, a.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// closeLogger 关闭日志输出，在所有日志写完后调用。
func (a *app) closeLogger() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

// statPoint 一个指标数据点。
type statPoint struct {
	Attrs map[string]string `json:"attrs"`
	Count uint64            `json:"count"`
	Sum   float64           `json:"sum,omitempty"`
}

// serveStats 输出进程内采集的 xprop 指标，按属性（含 status）分组。
func (a *app) serveStats(w http.ResponseWriter, r *http.Request) {
	var rm metricdata.ResourceMetrics
	if err := a.reader.Collect(r.Context(), &rm); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make(map[string][]statPoint)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = append(out[m.Name], statPoint{Attrs: attrMap(dp.Attributes), Count: uint64(max(dp.Value, 0))})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = append(out[m.Name], statPoint{Attrs: attrMap(dp.Attributes), Count: dp.Count, Sum: dp.Sum})
				}
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// serveSchedulers 输出各调度器 pool 的计数。
func (a *app) serveSchedulers(w http.ResponseWriter, _ *http.Request) {
	out := map[string]xpool.Stats{
		a.io.Name():  a.io.Stats(),
		a.def.Name(): a.def.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func attrMap(set attribute.Set) map[string]string {
	m := make(map[string]string, set.Len())
	for iter := set.Iter(); iter.Next(); {
		kv := iter.Attribute()
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}
