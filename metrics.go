package radbase

import "github.com/hupe1980/radbase/runner"

// MetricsCollector defines an interface for collecting operational metrics
// of generation runs. Implement it to integrate with monitoring systems;
// observability.Collector is a ready-made Prometheus implementation.
//
// Example:
//
//	type sampleCounter struct {
//	    radbase.NoopMetricsCollector
//	    n atomic.Int64
//	}
//
//	func (c *sampleCounter) OnSample(time.Duration, error) { c.n.Add(1) }
type MetricsCollector = runner.MetricsObserver

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector = runner.NoopMetrics

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector = runner.BasicMetrics

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats = runner.MetricsStats
