package xtrace

import "strings"

const (
	traceIDHexLen = 32
	spanIDHexLen  = 16
	// version-00 traceparent 的固定长度：00-{32}-{16}-{2}
	traceparentLen = 55
)

// TraceInfo 从传输层提取的追踪信息。
type TraceInfo struct {
	TraceID    string
	SpanID     string
	RequestID  string
	TraceFlags string

	Traceparent string
	Tracestate  string

	// TrackingID 调用方提供的请求跟踪标识。
	TrackingID string
}

// IsEmpty 所有字段都为空时返回 true。
func (t TraceInfo) IsEmpty() bool {
	return t == TraceInfo{}
}

// applyTraceparent 解析 Traceparent，成功时覆盖 TraceID、SpanID、TraceFlags。
func (t *TraceInfo) applyTraceparent() {
	if t.Traceparent == "" {
		return
	}
	if traceID, spanID, flags, ok := parseTraceparent(t.Traceparent); ok {
		t.TraceID, t.SpanID, t.TraceFlags = traceID, spanID, flags
	}
}

// parseTraceparent 解析 W3C traceparent。
//
// 版本 "ff" 无效；version 00 必须恰好 55 字符；更高版本允许尾随字段。
func parseTraceparent(v string) (traceID, spanID, flags string, ok bool) {
	if len(v) < traceparentLen {
		return "", "", "", false
	}
	parts := strings.SplitN(v, "-", 5)
	if len(parts) < 4 {
		return "", "", "", false
	}
	version := parts[0]
	if len(version) != 2 || !isHex(version) || version == "ff" {
		return "", "", "", false
	}
	if version == "00" && len(v) != traceparentLen {
		return "", "", "", false
	}
	if !isValidTraceID(parts[1]) || !isValidSpanID(parts[2]) || !isValidTraceFlags(parts[3]) {
		return "", "", "", false
	}
	return strings.ToLower(parts[1]), strings.ToLower(parts[2]), strings.ToLower(parts[3]), true
}

// formatTraceparent 生成 version-00 traceparent；ID 无效时返回空字符串。
// flags 无效时按 "00"（未采样）处理。
func formatTraceparent(traceID, spanID, flags string) string {
	if !isValidTraceID(traceID) || !isValidSpanID(spanID) {
		return ""
	}
	if !isValidTraceFlags(flags) {
		flags = "00"
	}
	return strings.ToLower("00-" + traceID + "-" + spanID + "-" + flags)
}

func isHex(s string) bool {
	for i := range len(s) {
		switch c := s[i]; {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func isNonZeroHex(s string, n int) bool {
	return len(s) == n && isHex(s) && strings.Trim(s, "0") != ""
}

func isValidTraceID(id string) bool { return isNonZeroHex(id, traceIDHexLen) }

func isValidSpanID(id string) bool { return isNonZeroHex(id, spanIDHexLen) }

func isValidTraceFlags(flags string) bool { return len(flags) == 2 && isHex(flags) }
