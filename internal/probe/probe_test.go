package probe_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xprop/internal/probe"
	"github.com/omeyang/xprop/pkg/async/xasync"
	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xtrace"
	"github.com/omeyang/xprop/pkg/server/xfilter"
	"github.com/omeyang/xprop/pkg/verify/xharness"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func newService(t *testing.T, delay time.Duration) *probe.Service {
	t.Helper()
	ioSched, err := xasync.NewPoolScheduler("io", 16, 256)
	require.NoError(t, err)
	defSched, err := xasync.NewPoolScheduler("default", 8, 256)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, ioSched.Shutdown(ctx))
		assert.NoError(t, defSched.Shutdown(ctx))
	})
	svc, err := probe.NewService(ioSched, defSched, delay)
	require.NoError(t, err)
	return svc
}

func newServer(t *testing.T, svc *probe.Service, opts ...xfilter.Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(svc.NewPipeline(opts...))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, id string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(`{"name":"sss"}`))
	require.NoError(t, err)
	if id != "" {
		req.Header.Set(xtrace.HeaderTrackingID, id)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestTrigger_HundredConcurrentRequests(t *testing.T) {
	srv := newServer(t, newService(t, probe.DefaultDelay))

	report, err := xharness.Run(context.Background(), xharness.Config{BaseURL: srv.URL, Count: 100})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.True(t, report.OK())
	assert.Equal(t, 100, report.Matched)
	assert.Zero(t, report.Leaked())
}

func TestTrigger_ReturnsOwnID(t *testing.T) {
	srv := newServer(t, newService(t, time.Millisecond))

	resp, body := do(t, http.MethodPost, srv.URL+"/trigger", "abc-123")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", body)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestTrigger_MissingHeader(t *testing.T) {
	srv := newServer(t, newService(t, time.Millisecond))

	resp, body := do(t, http.MethodPost, srv.URL+"/trigger", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "missing", resp.Header.Get(xfilter.HeaderPropagationError))
	assert.Contains(t, body, "ambient_tracking_id")
}

func TestData_ReturnsAmbientID(t *testing.T) {
	srv := newServer(t, newService(t, time.Millisecond))

	resp, body := do(t, http.MethodGet, srv.URL+"/data", "amb-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "amb-1", body)

	resp, _ = do(t, http.MethodGet, srv.URL+"/data", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRouting(t *testing.T) {
	srv := newServer(t, newService(t, time.Millisecond))

	resp, _ := do(t, http.MethodGet, srv.URL+"/trigger", "x")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "POST", resp.Header.Get("Allow"))

	resp, _ = do(t, http.MethodGet, srv.URL+"/nope", "x")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFindValue_Mismatch(t *testing.T) {
	svc := newService(t, time.Millisecond)

	ctx, err := xctx.WithCarrier(context.Background(), xcarrier.Of(xctx.ExplicitTrackingID, "a"))
	require.NoError(t, err)
	ctx, err = xbridge.Enter(ctx, xcarrier.Of(xctx.AmbientTrackingID, "b"))
	require.NoError(t, err)

	_, err = svc.FindValue(ctx)
	require.ErrorIs(t, err, xctx.ErrContextMismatch)
	var me *xctx.MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "b", me.Ambient)
	assert.Equal(t, "a", me.Explicit)
}

func TestFindValue_Canceled(t *testing.T) {
	svc := newService(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FindValue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilters_Order(t *testing.T) {
	p := newService(t, time.Millisecond).NewPipeline()
	filters := p.Filters()
	require.Len(t, filters, 2)
	assert.Equal(t, probe.OrderExplicit, filters[0].Order())
	assert.Equal(t, probe.OrderAmbient, filters[1].Order())
}

func TestNewService_NilScheduler(t *testing.T) {
	_, err := probe.NewService(nil, xasync.Inline(), 0)
	assert.ErrorIs(t, err, probe.ErrNilScheduler)
}
