package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xlog"
	"github.com/omeyang/xprop/pkg/observability/xrotate"
)

func buildJSON(t *testing.T, b *xlog.Builder) (xlog.LoggerWithLevel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := b.SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := xlog.New().SetLevelString("loud").Build()
	assert.ErrorIs(t, err, xlog.ErrUnknownLevel)

	_, _, err = xlog.New().SetFormat("xml").Build()
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = xlog.New().SetRotation(xrotate.Config{}).Build()
	assert.ErrorIs(t, err, xrotate.ErrEmptyFilename)

	// first-error-wins
	_, _, err = xlog.New().SetLevelString("loud").SetFormat("xml").Build()
	assert.ErrorIs(t, err, xlog.ErrUnknownLevel)
}

func TestEnrich_TraceAndTracking(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New().SetAttrs(slog.String("service", "xpropd")))

	ctx, err := xctx.WithTrace(context.Background(), xctx.Trace{TraceID: "t1", SpanID: "s1", RequestID: "r1"})
	require.NoError(t, err)
	ctx, err = xbridge.Enter(ctx, xcarrier.Of(xctx.AmbientTrackingID, "amb"))
	require.NoError(t, err)
	ctx, err = xbridge.Install(ctx, xcarrier.Of(xctx.ExplicitTrackingID, "exp"))
	require.NoError(t, err)

	logger.Info(ctx, "resolved", xlog.Scheduler("io"))

	lines := decode(t, buf)
	require.Len(t, lines, 1)
	rec := lines[0]
	assert.Equal(t, "resolved", rec["msg"])
	assert.Equal(t, "xpropd", rec["service"])
	assert.Equal(t, "io", rec[xlog.KeyScheduler])
	assert.Equal(t, "t1", rec[xctx.KeyTraceID])
	assert.Equal(t, "r1", rec[xctx.KeyRequestID])
	assert.Equal(t, "amb", rec["ambient_tracking_id"])
	assert.Equal(t, "exp", rec["explicit_tracking_id"])
}

func TestEnrich_CarrierDump(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New().SetCarrierDump(true))

	ctx, err := xbridge.Enter(context.Background(), xcarrier.Of(xctx.AmbientTrackingID, "amb"))
	require.NoError(t, err)
	ctx, err = xbridge.Install(ctx, xcarrier.Of(xctx.ExplicitTrackingID, "exp"))
	require.NoError(t, err)

	logger.Info(ctx, "dump")
	logger.Info(context.Background(), "empty")

	lines := decode(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, map[string]any{
		"ambient_tracking_id":  "amb",
		"explicit_tracking_id": "exp",
	}, lines[0][xlog.GroupView])
	assert.Equal(t, map[string]any{"ambient_tracking_id": "amb"}, lines[0][xlog.GroupAmbient])
	assert.NotContains(t, lines[1], xlog.GroupView)
	assert.NotContains(t, lines[1], xlog.GroupAmbient)
}

func TestEnrich_NoCarrierDumpByDefault(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New())
	ctx, err := xbridge.Install(context.Background(), xcarrier.Of(xctx.ExplicitTrackingID, "exp"))
	require.NoError(t, err)

	logger.Info(ctx, "quiet")
	rec := decode(t, buf)[0]
	assert.Equal(t, "exp", rec["explicit_tracking_id"])
	assert.NotContains(t, rec, xlog.GroupView)
}

func TestEnrich_Disabled(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New().SetEnrich(false))
	ctx, err := xctx.WithTraceID(context.Background(), "t1")
	require.NoError(t, err)

	logger.Info(ctx, "plain")
	assert.NotContains(t, decode(t, buf)[0], xctx.KeyTraceID)
}

func TestNewEnrichHandler_Nil(t *testing.T) {
	_, err := xlog.NewEnrichHandler(nil)
	assert.ErrorIs(t, err, xlog.ErrNilHandler)
}

func TestLogger_LevelAndDerived(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New().SetLevel(xlog.LevelWarn))
	ctx := context.Background()

	child := logger.With(slog.String("component", "probe")).WithGroup("req")
	child.Info(ctx, "dropped")
	child.Warn(ctx, "kept", slog.String("path", "/trigger"))
	assert.False(t, logger.Enabled(ctx, xlog.LevelInfo))

	logger.SetLevel(xlog.LevelDebug)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	child.Debug(ctx, "now visible")

	lines := decode(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.Equal(t, "probe", lines[0]["component"])
	assert.Equal(t, map[string]any{"path": "/trigger"}, lines[0]["req"])
	assert.Equal(t, "now visible", lines[1]["msg"])

	assert.Same(t, logger, logger.With())
	assert.Same(t, logger, logger.WithGroup(""))
}

func TestLogger_Stack(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New())
	logger.Stack(context.Background(), "panic recovered", xlog.Err(errors.New("boom")))

	rec := decode(t, buf)[0]
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "boom", rec[xlog.KeyError])
	assert.Contains(t, rec[xlog.KeyStack], "TestLogger_Stack")
}

func TestLogger_AddSourcePointsAtCaller(t *testing.T) {
	logger, buf := buildJSON(t, xlog.New().SetAddSource(true))
	logger.Info(context.Background(), "where")

	src, ok := decode(t, buf)[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(src["file"].(string), "xlog_test.go"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLogger_OnError(t *testing.T) {
	var got []error
	logger, _, err := xlog.New().
		SetOutput(failingWriter{}).
		SetOnError(func(err error) {
			got = append(got, err)
			panic("callback panics are contained")
		}).
		Build()
	require.NoError(t, err)

	logger.Error(context.Background(), "lost")
	require.Len(t, got, 1)
	assert.ErrorContains(t, got[0], "disk full")
	assert.Equal(t, uint64(2), xlog.ErrorCount(logger), "write failure plus callback panic")
}

func TestGlobal(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)

	assert.NotNil(t, xlog.Default())

	logger, buf := buildJSON(t, xlog.New().SetLevel(xlog.LevelDebug).SetAddSource(true))
	xlog.SetDefault(logger)
	xlog.SetDefault(nil)

	ctx := context.Background()
	xlog.Debug(ctx, "d")
	xlog.Info(ctx, "i")
	xlog.Warn(ctx, "w")
	xlog.Error(ctx, "e")
	xlog.Stack(ctx, "s")

	lines := decode(t, buf)
	require.Len(t, lines, 5)
	for _, rec := range lines {
		src := rec["source"].(map[string]any)
		assert.True(t, strings.HasSuffix(src["file"].(string), "xlog_test.go"), rec["msg"])
	}
	assert.Contains(t, lines[4], xlog.KeyStack)
}

func TestBuilder_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xpropd.log")
	logger, cleanup, err := xlog.New().SetRotation(xrotate.DefaultConfig(path)).Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "to file")
	require.NoError(t, cleanup())
	require.NoError(t, cleanup(), "cleanup is idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]xlog.Level{
		"debug": xlog.LevelDebug, " INFO ": xlog.LevelInfo,
		"warning": xlog.LevelWarn, "Error": xlog.LevelError,
	} {
		got, err := xlog.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	var l xlog.Level
	require.NoError(t, l.UnmarshalText([]byte("warn")))
	assert.Equal(t, xlog.LevelWarn, l)
	text, err := l.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WARN", string(text))
	assert.Error(t, l.UnmarshalText([]byte("nope")))
}

func TestAttrs(t *testing.T) {
	assert.Equal(t, slog.Attr{}, xlog.Err(nil))
	assert.Equal(t, "50ms", xlog.Duration(50_000_000).Value.String())
	assert.Equal(t, xctx.KeyTrackingID, xlog.TrackingID("x").Key)
	assert.Equal(t, int64(404), xlog.StatusCode(404).Value.Int64())
}
