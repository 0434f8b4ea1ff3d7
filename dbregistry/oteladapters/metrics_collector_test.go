package oteladapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry/oteladapters"
)

func collectorWithReader(t *testing.T) (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return oteladapters.NewMetricsCollector(provider.Meter("dbregistry-test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))
	require.Len(t, resourceMetrics.ScopeMetrics, 1)

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration_ShouldRecordHistogram(t *testing.T) {
	collector, reader := collectorWithReader(t)

	collector.RecordDuration("dbregistry.health.probe", 250*time.Millisecond, map[string]string{"db_name": "billing"})

	resourceMetrics := collect(t, reader)
	metrics := resourceMetrics.ScopeMetrics[0].Metrics
	require.Len(t, metrics, 1)
	assert.Equal(t, "dbregistry.health.probe", metrics[0].Name)

	histogram, ok := metrics[0].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.25, histogram.DataPoints[0].Sum, 0.001)
}

func Test_MetricsCollector_IncrementCounter_ShouldAccumulate(t *testing.T) {
	collector, reader := collectorWithReader(t)

	collector.IncrementCounter("dbregistry.health.probe.failures", map[string]string{"db_name": "reporting"})
	collector.IncrementCounter("dbregistry.health.probe.failures", map[string]string{"db_name": "reporting"})

	resourceMetrics := collect(t, reader)
	metrics := resourceMetrics.ScopeMetrics[0].Metrics
	require.Len(t, metrics, 1)

	sum, ok := metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func Test_MetricsCollector_RecordValue_ShouldRecordGauge(t *testing.T) {
	collector, reader := collectorWithReader(t)

	collector.RecordValue("dbregistry.pool.in_use", 4, map[string]string{"db_name": "billing"})

	resourceMetrics := collect(t, reader)
	metrics := resourceMetrics.ScopeMetrics[0].Metrics
	require.Len(t, metrics, 1)

	gauge, ok := metrics[0].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, float64(4), gauge.DataPoints[0].Value)
}
