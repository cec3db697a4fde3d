package telemetry_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/merchant/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRegisterDBPoolMetrics_Validation(t *testing.T) {
	_, err := telemetry.RegisterDBPoolMetrics(nil, func() sql.DBStats { return sql.DBStats{} })
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)

	provider := sdkmetric.NewMeterProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	_, err = telemetry.RegisterDBPoolMetrics(provider.Meter("db"), nil)
	assert.Error(t, err)
}

func TestRegisterDBPoolMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	stats := sql.DBStats{MaxOpenConnections: 25, InUse: 3, Idle: 5, WaitCount: 9}
	reg, err := telemetry.RegisterDBPoolMetrics(provider.Meter("db"), func() sql.DBStats { return stats })
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	gauges := make(map[string]metricdata.Gauge[int64])
	var waits metricdata.Sum[int64]
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Gauge[int64]:
				gauges[md.Name] = data
			case metricdata.Sum[int64]:
				if md.Name == "db_pool_wait_count" {
					waits = data
				}
			}
		}
	}

	byState := make(map[string]int64)
	for _, dp := range gauges["db_pool_connections"].DataPoints {
		state, ok := dp.Attributes.Value(telemetry.AttrPoolState)
		require.True(t, ok)
		byState[state.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"in_use": 3, "idle": 5}, byState)

	require.Len(t, gauges["db_pool_connections_max"].DataPoints, 1)
	assert.Equal(t, int64(25), gauges["db_pool_connections_max"].DataPoints[0].Value)

	require.Len(t, waits.DataPoints, 1)
	assert.Equal(t, int64(9), waits.DataPoints[0].Value)

	require.NoError(t, reg.Unregister())
	rm = metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if g, ok := md.Data.(metricdata.Gauge[int64]); ok {
				assert.Empty(t, g.DataPoints, md.Name)
			}
		}
	}
}
