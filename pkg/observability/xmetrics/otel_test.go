package xmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestProviders(t *testing.T) (*tracetest.InMemoryExporter, *sdkmetric.ManualReader, Observer) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)
	return exporter, reader, obs
}

// collectTotal 汇总 operation.total 计数，按 status 分组。
func collectTotal(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				out[status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestNewOTelObserver_Default(t *testing.T) {
	obs, err := NewOTelObserver()
	require.NoError(t, err)
	require.NotNil(t, obs)
}

func TestNewOTelObserver_NilOption(t *testing.T) {
	obs, err := NewOTelObserver(nil)
	assert.ErrorIs(t, err, ErrNilOption)
	assert.Nil(t, obs)
}

func TestNewOTelObserver_IgnoresEmptyValues(t *testing.T) {
	obs, err := NewOTelObserver(
		WithInstrumentationName(""),
		WithTracerProvider(nil),
		WithMeterProvider(nil),
	)
	require.NoError(t, err)
	require.NotNil(t, obs)
}

func TestOTelObserver_SpanAndMetrics(t *testing.T) {
	exporter, reader, obs := newTestProviders(t)

	_, span := obs.Start(context.Background(), SpanOptions{
		Component: "xpool",
		Operation: "task.run",
		Attrs: []Attr{
			String("pool", "p1"),
			Int("workers", 2),
			Duration("queue_wait", 1500*time.Millisecond),
			{Key: "", Value: "skip"},
		},
	})
	span.End(Result{Attrs: []Attr{Int("pending", 3)}})

	_, span = obs.Start(context.Background(), SpanOptions{Component: "xpool", Operation: "task.run"})
	span.End(Result{Err: errors.New("boom")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "task.run", spans[0].Name)
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("pool", "p1"))
	assert.Contains(t, spans[0].Attributes, attribute.Int("workers", 2))
	assert.Contains(t, spans[0].Attributes, attribute.Float64("queue_wait", 1.5))
	assert.Contains(t, spans[0].Attributes, attribute.Int("pending", 3))
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)

	totals := collectTotal(t, reader)
	assert.Equal(t, int64(1), totals[string(StatusOK)])
	assert.Equal(t, int64(1), totals[string(StatusError)])
}

func TestOTelSpan_EndIsIdempotent(t *testing.T) {
	exporter, reader, obs := newTestProviders(t)

	_, span := obs.Start(context.Background(), SpanOptions{})
	span.End(Result{})
	span.End(Result{Err: errors.New("ignored")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, unknownValue, spans[0].Name)
	assert.Equal(t, int64(1), collectTotal(t, reader)[string(StatusOK)])
}

func TestStart_Fallbacks(t *testing.T) {
	//nolint:staticcheck // 测试 nil ctx 归一化
	ctx, span := Start(nil, nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.Equal(t, NoopSpan{}, span)

	ctx, span = Start(context.Background(), nilSpanObserver{}, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.Equal(t, NoopSpan{}, span)
}

type nilSpanObserver struct{}

func (nilSpanObserver) Start(context.Context, SpanOptions) (context.Context, Span) {
	return nil, nil
}

func TestToOTel_FallsBackToString(t *testing.T) {
	got := toOTel([]Attr{{Key: "k", Value: struct{ A int }{1}}, {Key: "nil", Value: nil}})
	assert.Equal(t, []attribute.KeyValue{attribute.String("k", "{1}")}, got)
}
