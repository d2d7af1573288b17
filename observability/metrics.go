// Package observability wires generation runs into Prometheus and
// OpenTelemetry.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ runner.MetricsObserver = (*Collector)(nil)

// Collector bundles the Prometheus metrics of generation runs. It implements
// runner.MetricsObserver.
type Collector struct {
	gatherer prometheus.Gatherer

	Samples         *prometheus.CounterVec
	SampleDurations prometheus.Histogram

	Blocks       prometheus.Counter
	BlockRows    prometheus.Counter
	BlockSeconds prometheus.Histogram

	Aggregations        *prometheus.CounterVec
	DatasetRows         prometheus.Gauge
	DatasetDuplicates   prometheus.Gauge
	AggregationDuration prometheus.Gauge
}

// NewCollector registers the run metrics against reg, defaulting to the
// global Prometheus registry when nil. Registering twice against the same
// registry returns collectors sharing the existing metrics.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	samples, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radbase_samples_total",
		Help: "Simulator invocations, labeled by result (ok, failed, error).",
	}, []string{"result"}), "radbase_samples_total")
	if err != nil {
		return nil, err
	}

	sampleDurations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "radbase_sample_duration_seconds",
		Help:    "Simulator invocation latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	}), "radbase_sample_duration_seconds")
	if err != nil {
		return nil, err
	}

	blocks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radbase_blocks_total",
		Help: "Blocks flushed to the run directory.",
	}), "radbase_blocks_total")
	if err != nil {
		return nil, err
	}

	blockRows, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radbase_block_rows_total",
		Help: "Rows flushed to the run directory.",
	}), "radbase_block_rows_total")
	if err != nil {
		return nil, err
	}

	blockSeconds, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "radbase_block_duration_seconds",
		Help:    "Time to generate and flush one block in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	}), "radbase_block_duration_seconds")
	if err != nil {
		return nil, err
	}

	aggregations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radbase_aggregations_total",
		Help: "Dataset aggregations, labeled by result (ok, error).",
	}, []string{"result"}), "radbase_aggregations_total")
	if err != nil {
		return nil, err
	}

	rows, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radbase_dataset_rows",
		Help: "Rows written by the last aggregation.",
	}), "radbase_dataset_rows")
	if err != nil {
		return nil, err
	}

	dups, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radbase_dataset_duplicates",
		Help: "Duplicate rows dropped by the last aggregation.",
	}), "radbase_dataset_duplicates")
	if err != nil {
		return nil, err
	}

	aggSeconds, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radbase_aggregation_duration_seconds",
		Help: "Duration of the last aggregation in seconds.",
	}), "radbase_aggregation_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		Samples:             samples,
		SampleDurations:     sampleDurations,
		Blocks:              blocks,
		BlockRows:           blockRows,
		BlockSeconds:        blockSeconds,
		Aggregations:        aggregations,
		DatasetRows:         rows,
		DatasetDuplicates:   dups,
		AggregationDuration: aggSeconds,
	}, nil
}

// OnSample implements runner.MetricsObserver.
func (c *Collector) OnSample(duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.Samples.WithLabelValues(sampleResult(err)).Inc()
	c.SampleDurations.Observe(duration.Seconds())
}

// OnBlock implements runner.MetricsObserver.
func (c *Collector) OnBlock(_, rows, _ int, duration time.Duration) {
	if c == nil {
		return
	}
	c.Blocks.Inc()
	c.BlockRows.Add(float64(rows))
	c.BlockSeconds.Observe(duration.Seconds())
}

// OnAggregate implements runner.MetricsObserver.
func (c *Collector) OnAggregate(rows, duplicates int, duration time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.Aggregations.WithLabelValues("error").Inc()
		return
	}
	c.Aggregations.WithLabelValues("ok").Inc()
	c.DatasetRows.Set(float64(rows))
	c.DatasetDuplicates.Set(float64(duplicates))
	c.AggregationDuration.Set(duration.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func sampleResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case oracle.IsRecoverable(err):
		return "failed"
	default:
		return "error"
	}
}

// register registers c, returning the already registered collector of the
// same type on a duplicate registration.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("observability: collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
