package xharness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xmetrics"
	"github.com/omeyang/xprop/pkg/observability/xtrace"
	"github.com/omeyang/xprop/pkg/server/xfilter"
)

// 默认值
const (
	DefaultCount    = 100
	DefaultPath     = "/trigger"
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = 50 * time.Millisecond

	maxBodyBytes = 64 << 10
)

// Config 验证参数。零值字段使用默认值。
type Config struct {
	BaseURL string
	Path    string
	Count   int
	// Concurrency 同时在途的请求上限，<= 0 表示 Count 个请求同时发出。
	Concurrency int
	// Timeout 单次尝试的超时。
	Timeout  time.Duration
	Attempts uint
	// Delay 重试间隔的基准值。
	Delay    time.Duration
	Client   *http.Client
	Observer xmetrics.Observer
}

func (c Config) withDefaults() (Config, error) {
	if c.BaseURL == "" {
		return c, fmt.Errorf("%w: empty base url", ErrInvalidConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Count < 0 {
		return c, fmt.Errorf("%w: negative count %d", ErrInvalidConfig, c.Count)
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Count == 0 {
		c.Count = DefaultCount
	}
	if c.Concurrency <= 0 || c.Concurrency > c.Count {
		c.Concurrency = c.Count
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Attempts == 0 {
		c.Attempts = DefaultAttempts
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	return c, nil
}

type outcome struct {
	id  string
	got string
	err error
}

// Run 执行一轮验证。
//
// 返回的 error 只表示无法开始或被 ctx 取消；请求级问题记录在 Report 中，
// 用 Report.Err 汇总。
func Run(ctx context.Context, cfg Config) (Report, error) {
	if ctx == nil {
		return Report{}, ErrNilContext
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return Report{}, err
	}
	target := strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Path, "/")

	ids := make([]string, cfg.Count)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	start := time.Now()
	outcomes := make([]outcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			got, err := send(gctx, cfg, target, id)
			outcomes[i] = outcome{id: id, got: got, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Report{}, context.Cause(ctx)
	}
	return buildReport(ids, outcomes, time.Since(start)), nil
}

func buildReport(ids []string, outcomes []outcome, elapsed time.Duration) Report {
	sent := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}
	r := Report{Sent: len(ids), Elapsed: elapsed}
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			r.Failures = append(r.Failures, Failure{ID: o.id, Err: o.err})
		case o.got == o.id:
			r.Matched++
		default:
			_, leaked := sent[o.got]
			r.Mismatches = append(r.Mismatches, Mismatch{Sent: o.id, Got: o.got, Leaked: leaked})
		}
	}
	return r
}

func send(ctx context.Context, cfg Config, target, id string) (string, error) {
	ctx, span := xmetrics.Start(ctx, cfg.Observer, xmetrics.SpanOptions{
		Component: "xharness",
		Operation: "send",
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.TrackingID(id)},
	})

	var got string
	var statusErr *StatusError
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.LastErrorOnly(true),
		// 自定义 RetryIf 会替换 retry-go 的 IsRecoverable 判断，需一并处理
		retry.RetryIf(retryable),
	).Do(func() error {
		body, se, err := attempt(ctx, cfg, target, id)
		if se != nil {
			statusErr = se
			return se
		}
		got = body
		return err
	})
	if statusErr != nil {
		err = statusErr
	}
	span.End(xmetrics.Result{Err: err})
	return got, err
}

// retryable 只重试传输错误：非 2xx 应答与 ctx 错误都不重试。
func retryable(err error) bool {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return retry.IsRecoverable(err)
	}
}

// attempt 发送一次请求。非 2xx 通过 *StatusError 返回。
func attempt(ctx context.Context, cfg Config, target, id string) (string, *StatusError, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	ctx, err := xctx.WithCarrier(ctx, xcarrier.Of(xctx.ExplicitTrackingID, id))
	if err != nil {
		return "", nil, err
	}
	if ctx, err = xctx.EnsureTrace(ctx); err != nil {
		return "", nil, err
	}

	payload := `{"name":"sss-` + id + `"}`
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(payload))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	xtrace.InjectToRequest(ctx, req)

	resp, err := cfg.Client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", nil, err
	}
	body := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{
			Code:        resp.StatusCode,
			Propagation: resp.Header.Get(xfilter.HeaderPropagationError),
			Body:        body,
		}, nil
	}
	return body, nil, nil
}
