package xtrace

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/omeyang/xprop/pkg/context/xbridge"
	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
)

// gRPC Metadata 键（小写）
const (
	MetaTrackingID = "x-tracking-id"

	MetaTraceID   = "x-trace-id"
	MetaSpanID    = "x-span-id"
	MetaRequestID = "x-request-id"

	MetaTraceparent = "traceparent"
	MetaTracestate  = "tracestate"
)

// ExtractFromMetadata 从 gRPC Metadata 提取追踪信息。
func ExtractFromMetadata(md metadata.MD) TraceInfo {
	if md == nil {
		return TraceInfo{}
	}
	info := TraceInfo{
		TraceID:     firstValue(md, MetaTraceID),
		SpanID:      firstValue(md, MetaSpanID),
		RequestID:   firstValue(md, MetaRequestID),
		Traceparent: firstValue(md, MetaTraceparent),
		Tracestate:  firstValue(md, MetaTracestate),
		TrackingID:  firstValue(md, MetaTrackingID),
	}
	info.applyTraceparent()
	return info
}

func firstValue(md metadata.MD, key string) string {
	if vs := md.Get(key); len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// GRPCUnaryServerInterceptor 服务端拦截器。
//
// 追踪字段写入 xctx；x-tracking-id 同时作为环境快照（xbridge.Enter）
// 和显式通道条目（xbridge.Install）写入，处理器可用 xbridge.ResolveTrackingID 读取。
func GRPCUnaryServerInterceptor(opts ...MiddlewareOption) grpc.UnaryServerInterceptor {
	cfg := middlewareConfig{autoGenerate: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var info TraceInfo
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			info = ExtractFromMetadata(md)
		}
		ctx = injectTrace(ctx, info, cfg.autoGenerate)

		if info.TrackingID != "" {
			var err error
			if ctx, err = xbridge.Enter(ctx, xcarrier.Of(xctx.AmbientTrackingID, info.TrackingID)); err != nil {
				return nil, err
			}
			if ctx, err = xbridge.Install(ctx, xcarrier.Of(xctx.ExplicitTrackingID, info.TrackingID)); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

// GRPCUnaryClientInterceptor 客户端拦截器，将追踪信息与跟踪标识写入出站 Metadata。
func GRPCUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(InjectToOutgoingContext(ctx), method, req, reply, cc, opts...)
	}
}

// InjectToOutgoingContext 将追踪信息与跟踪标识写入出站 Metadata。
// 已有的出站 Metadata 被复制后再修改。
func InjectToOutgoingContext(ctx context.Context) context.Context {
	tr := xctx.GetTrace(ctx)
	tracking := TrackingID(ctx)
	if tr.TraceID == "" && tr.SpanID == "" && tr.RequestID == "" && tracking == "" {
		return ctx
	}

	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	for k, v := range map[string]string{
		MetaTraceID:     tr.TraceID,
		MetaSpanID:      tr.SpanID,
		MetaRequestID:   tr.RequestID,
		MetaTrackingID:  tracking,
		MetaTraceparent: formatTraceparent(tr.TraceID, tr.SpanID, tr.TraceFlags),
	} {
		if v != "" {
			md.Set(k, v)
		}
	}
	return metadata.NewOutgoingContext(ctx, md)
}
