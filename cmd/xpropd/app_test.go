package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xprop/pkg/observability/xlog"
	"github.com/omeyang/xprop/pkg/util/xpool"
	"github.com/omeyang/xprop/pkg/verify/xharness"
)

func newTestApp(t *testing.T, path string) *app {
	t.Helper()
	_, cfg, err := loadConfig(path)
	require.NoError(t, err)
	cfg.Log.Level = "warn"
	cfg.Scheduler.IO.Workers = 16
	cfg.Probe.Delay = 0
	a, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.shutdown(context.Background()))
		assert.NoError(t, a.closeLogger())
	})
	return a
}

func TestApp_ServesProbe(t *testing.T) {
	a := newTestApp(t, "")
	srv := httptest.NewServer(a.server.Handler)
	t.Cleanup(srv.Close)

	report, err := xharness.Run(context.Background(), xharness.Config{BaseURL: srv.URL, Count: 20})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/debug/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats map[string][]statPoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))

	var ok uint64
	for _, p := range stats["xprop.operation.total"] {
		if p.Attrs["component"] == "xfilter" && p.Attrs["status"] == "ok" {
			ok += p.Count
		}
	}
	assert.Equal(t, uint64(20), ok)

	resp, err = http.Get(srv.URL + "/debug/schedulers")
	require.NoError(t, err)
	defer resp.Body.Close()
	var pools map[string]xpool.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pools))
	for _, name := range []string{"io", "default"} {
		assert.GreaterOrEqual(t, pools[name].Submitted, uint64(20), name)
		assert.Zero(t, pools[name].Rejected, name)
	}
}

func TestApp_MissingHeaderCountedAsMissing(t *testing.T) {
	a := newTestApp(t, "")
	srv := httptest.NewServer(a.server.Handler)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/trigger", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	rec := httptest.NewRecorder()
	a.serveStats(rec, httptest.NewRequest(http.MethodGet, "/debug/stats", nil))
	assert.Contains(t, rec.Body.String(), `"status":"missing"`)
}

func TestApp_OnReloadUpdatesLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	a := newTestApp(t, path)
	conf, _, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, xlog.LevelWarn, a.logger.GetLevel())

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	require.NoError(t, conf.Reload())
	a.onReload(conf, nil)
	assert.Equal(t, xlog.LevelDebug, a.logger.GetLevel())

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	require.NoError(t, conf.Reload())
	a.onReload(conf, nil)
	assert.Equal(t, xlog.LevelDebug, a.logger.GetLevel())

	a.onReload(conf, assert.AnError)
	assert.Equal(t, xlog.LevelDebug, a.logger.GetLevel())
}

func TestNewApp_InvalidFormat(t *testing.T) {
	_, cfg, err := loadConfig("")
	require.NoError(t, err)
	cfg.Log.Format = "xml"
	_, err = newApp(cfg)
	assert.Error(t, err)
}
