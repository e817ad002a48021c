package xmetrics

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// 指标与跨度使用的属性键。
const (
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyStatus     = "status"
	KeyTrackingID = "xprop.tracking_id"
	KeyScheduler  = "xprop.scheduler"
	KeyHTTPStatus = "http.response.status_code"
)

// String 字符串属性。
func String(key, value string) Attr { return Attr{Key: key, Value: value} }

// Int 整数属性。
func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

// TrackingID 请求的跟踪标识。只用于跨度，不进入指标属性，避免基数爆炸。
func TrackingID(id string) Attr { return String(KeyTrackingID, id) }

// Scheduler 任务所在调度器。
func Scheduler(name string) Attr { return String(KeyScheduler, name) }

// HTTPStatus 响应状态码。
func HTTPStatus(code int) Attr { return Int(KeyHTTPStatus, code) }

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		out = append(out, toKeyValue(a))
	}
	return out
}

func toKeyValue(a Attr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case time.Duration:
		return attribute.Int64(a.Key, v.Nanoseconds())
	case fmt.Stringer:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}
