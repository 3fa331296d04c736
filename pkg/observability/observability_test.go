package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "recicla", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())

	_, done := p.TrackOperation(context.Background(), "noop")
	assert.NotPanics(t, func() { done(errors.New("ignored")) })
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProviderIsUsable(t *testing.T) {
	var p *Provider
	_, done := p.TrackOperation(context.Background(), "nil")
	assert.NotPanics(t, func() { done(nil) })
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackOperation_RecordsSpanAndMetrics(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	p, err := New(ctx, DefaultConfig(), WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	_, done := p.TrackOperation(ctx, "ledger.approve", attribute.Int64("proposal.id", 7))
	done(nil)
	_, done = p.TrackOperation(ctx, "ledger.approve", attribute.Int64("proposal.id", 8))
	done(errors.New("http 500"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ledger.approve", spans[0].Name())
	assert.Empty(t, spans[0].Events())
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), totals["recicla.operations.total"])
	assert.Equal(t, int64(1), totals["recicla.errors.total"])
	assert.Equal(t, int64(0), totals["recicla.operations.active"])
}
