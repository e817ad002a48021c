package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
	"github.com/omeyang/xprop/pkg/observability/xtrace"
	"github.com/omeyang/xprop/pkg/server/xfilter"
)

const maxResponseBytes = 64 << 10

// Client xpropd HTTP 客户端。
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建客户端，timeout 作用于单次请求。
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Result 一次请求的结果。
type Result struct {
	Status      int
	Body        string
	Propagation string
	TraceID     string
}

// Do 发送请求。trackingID 非空时经显式通道注入 X-TrackingId 与追踪头。
func (c *Client) Do(ctx context.Context, method, path, trackingID string) (*Result, error) {
	var err error
	if trackingID != "" {
		if ctx, err = xctx.WithCarrier(ctx, xcarrier.Of(xctx.ExplicitTrackingID, trackingID)); err != nil {
			return nil, err
		}
	}
	if ctx, err = xctx.EnsureTrace(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{"name":"sss-` + trackingID + `"}`)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	xtrace.InjectToRequest(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Result{
		Status:      resp.StatusCode,
		Body:        strings.TrimSpace(string(raw)),
		Propagation: resp.Header.Get(xfilter.HeaderPropagationError),
		TraceID:     xctx.TraceID(ctx),
	}, nil
}
