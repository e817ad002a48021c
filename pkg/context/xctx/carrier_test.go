package xctx_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCarrier(t *testing.T) {
	c, ok := xctx.Carrier(context.Background())
	assert.False(t, ok)
	assert.True(t, c.IsEmpty())

	ctx, err := xctx.WithCarrier(context.Background(), xcarrier.Of(xctx.AmbientTrackingID, "a-1"))
	require.NoError(t, err)

	c, ok = xctx.Carrier(ctx)
	require.True(t, ok)
	v, _ := xcarrier.Get(c, xctx.AmbientTrackingID)
	assert.Equal(t, "a-1", v)

	_, err = xctx.WithCarrier(nil, xcarrier.Empty()) //nolint:staticcheck // nil ctx 分支
	assert.ErrorIs(t, err, xctx.ErrNilContext)

	_, ok = xctx.Carrier(nil) //nolint:staticcheck // nil ctx 分支
	assert.False(t, ok)
}

// WithCarrier 是替换语义：第二次安装会遮蔽第一次的条目。
func TestWithCarrier_ReplacesPreviousView(t *testing.T) {
	ctx, err := xctx.WithCarrier(context.Background(), xcarrier.Of(xctx.AmbientTrackingID, "a-1"))
	require.NoError(t, err)
	ctx, err = xctx.WithCarrier(ctx, xcarrier.Of(xctx.ExplicitTrackingID, "e-1"))
	require.NoError(t, err)

	c, _ := xctx.Carrier(ctx)
	_, ok := xcarrier.Get(c, xctx.AmbientTrackingID)
	assert.False(t, ok, "replace drops the earlier entry")
	v, _ := xcarrier.Get(c, xctx.ExplicitTrackingID)
	assert.Equal(t, "e-1", v)
}

// 每个请求的 context 互相隔离。
func TestWithCarrier_Isolation(t *testing.T) {
	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("req-%d", i)
			ctx, err := xctx.WithCarrier(context.Background(), xcarrier.Of(xctx.ExplicitTrackingID, id))
			if err != nil {
				errs <- err
				return
			}
			c, _ := xctx.Carrier(ctx)
			if got, _ := xcarrier.Get(c, xctx.ExplicitTrackingID); got != id {
				errs <- fmt.Errorf("got %q want %q", got, id)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestMismatchError(t *testing.T) {
	var err error = &xctx.MismatchError{Key: xctx.KeyTrackingID, Ambient: "a", Explicit: "b"}

	assert.ErrorIs(t, err, xctx.ErrContextMismatch)
	assert.NotErrorIs(t, err, xctx.ErrContextMissing)
	assert.Contains(t, err.Error(), `ambient="a"`)
	assert.Contains(t, err.Error(), `explicit="b"`)

	var me *xctx.MismatchError
	wrapped := fmt.Errorf("handler: %w", err)
	require.True(t, errors.As(wrapped, &me))
	assert.Equal(t, "b", me.Explicit)
}

func TestMissingError(t *testing.T) {
	err := xctx.MissingError("tracking_id")
	assert.ErrorIs(t, err, xctx.ErrContextMissing)
	assert.Contains(t, err.Error(), "tracking_id")
}

func TestAttrs(t *testing.T) {
	ctx, err := xctx.WithTrace(context.Background(), xctx.Trace{TraceID: "t1", RequestID: "r1"})
	require.NoError(t, err)
	ctx, err = xctx.WithCarrier(ctx, xcarrier.With(
		xcarrier.Of(xctx.AmbientTrackingID, "a"), xctx.ExplicitTrackingID, "e"))
	require.NoError(t, err)

	attrs := xctx.AppendTraceAttrs(nil, ctx)
	assert.Equal(t, []slog.Attr{slog.String(xctx.KeyTraceID, "t1"), slog.String(xctx.KeyRequestID, "r1")}, attrs)

	attrs = xctx.AppendTrackingAttrs(nil, ctx)
	assert.Equal(t, []slog.Attr{
		slog.String("ambient_tracking_id", "a"),
		slog.String("explicit_tracking_id", "e"),
	}, attrs)

	assert.Nil(t, xctx.TraceAttrs(context.Background()))
	assert.Empty(t, xctx.AppendTrackingAttrs(nil, context.Background()))

	group := xctx.CarrierAttrs("carrier", xcarrier.Of(xctx.AmbientTrackingID, "a"))
	assert.Equal(t, "carrier", group.Key)
	assert.True(t, xctx.CarrierAttrs("carrier", xcarrier.Empty()).Equal(slog.Attr{}))
}
