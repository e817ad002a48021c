package xasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/util/xpool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type foreignKey struct{}

func newScheduler(t *testing.T, name string, workers int) *PoolScheduler {
	t.Helper()
	s, err := NewPoolScheduler(name, workers, 256)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// requestContext 构造一个两个通道都带有 id 的请求上下文。
func requestContext(t *testing.T, id string) context.Context {
	t.Helper()
	ctx, err := xbridge.Enter(context.Background(), xcarrier.Of(xctx.AmbientTrackingID, id))
	require.NoError(t, err)
	ctx, err = xbridge.Install(ctx, xcarrier.Of(xctx.ExplicitTrackingID, id))
	require.NoError(t, err)
	ctx, err = xctx.WithTraceID(ctx, "trace-"+id)
	require.NoError(t, err)
	return ctx
}

func resolve(ctx context.Context) (string, error) {
	return xbridge.ResolveTrackingID(ctx)
}

func TestOffload_CarriesSnapshot(t *testing.T) {
	s := newScheduler(t, "io", 2)
	ctx := requestContext(t, "r-1")

	got, err := Offload(ctx, s, func(ctx context.Context) (string, error) {
		assert.Equal(t, "trace-r-1", xctx.TraceID(ctx))
		amb, ok := xbridge.CurrentAmbient(ctx)
		assert.True(t, ok)
		assert.Equal(t, 1, amb.Len())
		return resolve(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", got)
}

func TestOffload_OnlySnapshotCrosses(t *testing.T) {
	ctx := context.WithValue(requestContext(t, "r-1"), foreignKey{}, "leak")

	got, err := Offload(ctx, Inline(), func(ctx context.Context) (any, error) {
		return ctx.Value(foreignKey{}), nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOffload_KeepsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(requestContext(t, "r-1"))
	cancel()

	_, err := Offload(ctx, Inline(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot_SpanAndBaggage(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	m, err := baggage.NewMemberRaw("tenant", "acme")
	require.NoError(t, err)
	bag, err := baggage.New(m)
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = baggage.ContextWithBaggage(ctx, bag)

	restored, err := Capture(ctx).Restore(detached{parent: context.Background()})
	require.NoError(t, err)
	assert.Equal(t, sc, trace.SpanContextFromContext(restored))
	assert.Equal(t, "acme", baggage.FromContext(restored).Member("tenant").Value())
}

func TestSnapshot_Empty(t *testing.T) {
	restored, err := Capture(context.Background()).Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, xbridge.View(restored).IsEmpty())
	assert.False(t, trace.SpanContextFromContext(restored).IsValid())

	_, err = Snapshot{}.Restore(nil) //nolint:staticcheck // nil ctx 分支
	assert.ErrorIs(t, err, xctx.ErrNilContext)
}

func TestSnapshot_RestoreFailureIsBoundaryLost(t *testing.T) {
	ctx, err := xbridge.Install(context.Background(), xcarrier.Of(xctx.ExplicitTrackingID, "e"))
	require.NoError(t, err)

	_, err = Capture(ctx).Restore(nil) //nolint:staticcheck // nil ctx 分支
	require.ErrorIs(t, err, xctx.ErrBoundaryLost)
	assert.ErrorIs(t, err, xctx.ErrNilContext)

	var me *xctx.MismatchError
	assert.False(t, errors.As(err, &me))
}

func TestGo_ScheduleFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := NewMockScheduler(ctrl)
	s.EXPECT().Name().Return("mock").AnyTimes()
	s.EXPECT().Schedule(gomock.Any()).Return(xpool.ErrQueueFull)

	p := Go(context.Background(), s, func(context.Context) (int, error) {
		t.Fatal("task must not run")
		return 0, nil
	})
	_, err := p.Await(context.Background())
	assert.ErrorIs(t, err, xpool.ErrQueueFull)
	assert.Contains(t, err.Error(), "mock")
}

func TestGo_RunsScheduledTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := NewMockScheduler(ctrl)
	s.EXPECT().Name().Return("mock").AnyTimes()
	s.EXPECT().Schedule(gomock.Any()).DoAndReturn(func(task func()) error {
		go task()
		return nil
	})

	p := Go(requestContext(t, "r-9"), s, func(ctx context.Context) (string, error) {
		return resolve(ctx)
	})
	<-p.Done()
	got, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r-9", got)
}

func TestGo_PanicBecomesError(t *testing.T) {
	s := newScheduler(t, "default", 1)
	_, err := Offload(context.Background(), s, func(context.Context) (int, error) {
		panic("boom")
	})
	assert.ErrorIs(t, err, ErrTaskPanic)
	assert.Contains(t, err.Error(), "boom")
}

func TestGo_NilContext(t *testing.T) {
	_, err := Go(nil, Inline(), func(context.Context) (int, error) { return 1, nil }).Await(context.Background()) //nolint:staticcheck // nil ctx 分支
	assert.ErrorIs(t, err, xctx.ErrNilContext)

	_, err = Go(context.Background(), Inline(), func(context.Context) (int, error) { return 1, nil }).Await(nil) //nolint:staticcheck // nil ctx 分支
	assert.ErrorIs(t, err, xctx.ErrNilContext)
}

func TestAwait_ContextDone(t *testing.T) {
	s := newScheduler(t, "slow", 1)
	release := make(chan struct{})
	p := Go(context.Background(), s, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("shutdown")
	cancel(cause)
	assert.ErrorIs(t, Sleep(ctx, time.Hour), cause)

	assert.ErrorIs(t, Sleep(nil, time.Millisecond), xctx.ErrNilContext) //nolint:staticcheck // nil ctx 分支
}

func TestSuspend_ResumesWithSnapshot(t *testing.T) {
	s := newScheduler(t, "default", 2)
	ctx := requestContext(t, "r-2")

	start := time.Now()
	got, err := Suspend(ctx, s, 20*time.Millisecond, func(ctx context.Context) (string, error) {
		return resolve(ctx)
	}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r-2", got)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSuspend_CancelledBeforeResume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Suspend(ctx, Inline(), time.Hour, func(context.Context) (int, error) {
		t.Fatal("resume must not run")
		return 0, nil
	})
	cancel()

	_, err := p.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuspend_ScheduleFailure(t *testing.T) {
	s, err := NewPoolScheduler("closed", 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Suspend(context.Background(), s, time.Millisecond, func(context.Context) (int, error) {
		return 1, nil
	}).Await(context.Background())
	assert.ErrorIs(t, err, xpool.ErrPoolStopped)
}

func TestNewPoolScheduler_InvalidArgs(t *testing.T) {
	_, err := NewPoolScheduler("bad", 0, 1)
	assert.ErrorIs(t, err, xpool.ErrInvalidWorkers)
}

// 多个请求并发跨越全部边界类型，互不串扰。
func TestBoundaries_Isolation(t *testing.T) {
	io := newScheduler(t, "io", 4)
	def := newScheduler(t, "default", 4)

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("req-%03d", i)
			ctx := requestContext(t, id)

			got, err := Offload(ctx, io, func(ctx context.Context) (string, error) {
				if err := Sleep(ctx, time.Millisecond); err != nil {
					return "", err
				}
				return Suspend(ctx, def, time.Millisecond, resolve).Await(ctx)
			})
			switch {
			case err != nil:
				errs <- err
			case got != id:
				errs <- fmt.Errorf("request %s resolved %s", id, got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
