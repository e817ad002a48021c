package xlog

import (
	"log/slog"
	"time"

	"github.com/omeyang/xprop/pkg/context/xctx"
)

// 常用字段名
const (
	KeyError      = "error"
	KeyStack      = "stack"
	KeyDuration   = "duration"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatusCode = "status_code"
	KeyScheduler  = "scheduler"
	KeyRequestID  = xctx.KeyRequestID
	KeyTrackingID = xctx.KeyTrackingID
)

// Err 错误属性；err 为 nil 时返回空属性，slog 会忽略。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 耗时属性，输出可读格式如 "50ms"。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

func StatusCode(code int) slog.Attr { return slog.Int(KeyStatusCode, code) }

// Scheduler 调度器名称属性。
func Scheduler(name string) slog.Attr { return slog.String(KeyScheduler, name) }

// TrackingID 请求跟踪标识属性。
func TrackingID(id string) slog.Attr { return slog.String(KeyTrackingID, id) }
