package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xtask/xmetrics"
	unknownValue               = "unknown"

	metricOperationTotal    = "xtask.operation.total"
	metricOperationDuration = "xtask.operation.duration"
)

type otelConfig struct {
	name           string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option 配置 NewOTelObserver。
type Option func(*otelConfig)

// WithInstrumentationName 设置 tracer/meter 名称，空字符串被忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，nil 被忽略。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 被忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer，
// 每个 Span 对应一个 SpanKindInternal 跨度，并记录次数与耗时两个指标。
// 未指定 provider 时使用 otel 全局 provider。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := otelConfig{
		name:           defaultInstrumentationName,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(&cfg)
	}

	meter := cfg.meterProvider.Meter(cfg.name)
	total, err := meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("Operations finished, by status."),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	duration, err := meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("Operation run time."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	return &otelObserver{
		tracer:   cfg.tracerProvider.Tracer(cfg.name),
		total:    total,
		duration: duration,
	}, nil
}

type otelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &otelSpan{
		observer:  o,
		component: orUnknown(opts.Component),
		operation: orUnknown(opts.Operation),
		start:     time.Now(),
	}

	attrs := append([]attribute.KeyValue{
		attribute.String("component", s.component),
		attribute.String("operation", s.operation),
	}, toOTel(opts.Attrs)...)
	s.ctx, s.span = o.tracer.Start(ctx, s.operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return s.ctx, s
}

type otelSpan struct {
	observer  *otelObserver
	ctx       context.Context
	span      trace.Span
	component string
	operation string
	start     time.Time
	once      sync.Once
}

func (s *otelSpan) End(result Result) {
	s.once.Do(func() {
		elapsed := time.Since(s.start)
		status := statusOf(result.Err)

		if result.Err != nil {
			s.span.RecordError(result.Err)
			s.span.SetStatus(codes.Error, result.Err.Error())
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		s.span.SetAttributes(toOTel(result.Attrs)...)
		s.span.End()

		// 调用方 ctx 已取消时指标仍需记录。
		ctx := context.WithoutCancel(s.ctx)
		set := metric.WithAttributes(
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
			attribute.String("status", string(status)),
		)
		s.observer.total.Add(ctx, 1, set)
		s.observer.duration.Record(ctx, elapsed.Seconds(), set)
	})
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}

// toOTel 转换属性，跳过空 key 与 nil 值。
func toOTel(attrs []Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case time.Duration:
			out = append(out, attribute.Float64(a.Key, v.Seconds()))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}
