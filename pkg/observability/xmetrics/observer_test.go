package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omeyang/xprop/pkg/context/xctx"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Internal", KindInternal.String())
	assert.Equal(t, "Server", KindServer.String())
	assert.Equal(t, "Client", KindClient.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   Status
	}{
		{"empty", Result{}, StatusOK},
		{"explicit wins", Result{Status: StatusOK, Err: errors.New("x")}, StatusOK},
		{"generic error", Result{Err: errors.New("x")}, StatusError},
		{"mismatch", Result{Err: fmt.Errorf("wrap: %w", &xctx.MismatchError{Key: "k"})}, StatusMismatch},
		{"missing", Result{Err: xctx.MissingError("k")}, StatusMissing},
		{"boundary lost", Result{Err: xctx.ErrBoundaryLost}, StatusMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStatus(tt.result))
		})
	}
}

type nilObserver struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) { return nil, nil }

func TestStart_Fallbacks(t *testing.T) {
	//nolint:staticcheck // nil ctx 应被安全处理
	ctx, span := Start(nil, nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)

	base := context.Background()
	ctx, span = Start(base, nilObserver{}, SpanOptions{})
	assert.Equal(t, base, ctx)
	assert.IsType(t, NoopSpan{}, span)

	ctx, span = Start(base, NoopObserver{}, SpanOptions{})
	assert.Equal(t, base, ctx)
	span.End(Result{Err: errors.New("ignored")})
}
