package xmetrics

import (
	"context"
	"time"
)

// Status 是任务结束状态，作为指标的 status 属性。
type Status string

// 任务状态。
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// statusOf 根据 err 推导状态。
func statusOf(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// Attr 是附加在跨度上的键值对，值为 string、int 或 time.Duration。
type Attr struct {
	Key   string
	Value any
}

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性，例如 worker 数、队列长度。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Duration 创建时长属性，导出为秒（float64）。
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// SpanOptions 描述一次被观测的操作。
type SpanOptions struct {
	// Component 为空时记为 "unknown"，Operation 同理。
	Component string
	Operation string
	Attrs     []Attr
}

// Result 是操作结束时的结果。Err 非 nil 时状态为 StatusError。
type Result struct {
	Err   error
	Attrs []Attr
}

// Span 是一次观测，End 只生效一次。
type Span interface {
	End(result Result)
}

// Observer 为一次操作开启 Span。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不做任何记录，是 xpool 的默认 Observer。
type NoopObserver struct{}

// Start 返回 ctx 和 NoopSpan。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是空跨度。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(Result) {}

// Start 用 observer 开启 Span，返回值总是非 nil：
// nil ctx 视为 context.Background()，nil observer 或 nil Span 退化为 NoopSpan。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	spanCtx, span := observer.Start(ctx, opts)
	if spanCtx == nil {
		spanCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return spanCtx, span
}
