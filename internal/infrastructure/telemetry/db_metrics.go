package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AttrPoolState labels db_pool_connections by connection state
var AttrPoolState = attribute.Key("state")

// PoolStatsFunc reports the current connection pool statistics
type PoolStatsFunc func() sql.DBStats

// RegisterDBPoolMetrics exports connection pool statistics as observable gauges.
// The stats are read on each collection, so no polling goroutine is needed.
// Unregister the returned registration before closing the pool.
func RegisterDBPoolMetrics(meter metric.Meter, stats PoolStatsFunc) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if stats == nil {
		return nil, errors.New("telemetry: pool stats func cannot be nil")
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge db_pool_connections: %w", err)
	}
	maxConnections, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections allowed"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge db_pool_connections_max: %w", err)
	}
	waitCount, err := meter.Int64ObservableCounter("db_pool_wait_count",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter db_pool_wait_count: %w", err)
	}

	inUse := metric.WithAttributes(AttrPoolState.String("in_use"))
	idle := metric.WithAttributes(AttrPoolState.String("idle"))

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(connections, int64(s.InUse), inUse)
		o.ObserveInt64(connections, int64(s.Idle), idle)
		o.ObserveInt64(maxConnections, int64(s.MaxOpenConnections))
		o.ObserveInt64(waitCount, s.WaitCount)
		return nil
	}, connections, maxConnections, waitCount)
}
