package runner

import (
	"sync/atomic"
	"time"
)

// MetricsObserver receives operational events of a run.
// Implementations must be safe for concurrent use: OnSample is called from
// every worker slot.
type MetricsObserver interface {
	// OnSample is called after each invocation. err is nil on success.
	OnSample(duration time.Duration, err error)

	// OnBlock is called after block index was flushed with rows rows,
	// failed of which were recoverable failures.
	OnBlock(index, rows, failed int, duration time.Duration)

	// OnAggregate is called after aggregation.
	OnAggregate(rows, duplicates int, duration time.Duration, err error)
}

// NoopMetrics is a no-op implementation of MetricsObserver.
type NoopMetrics struct{}

func (NoopMetrics) OnSample(time.Duration, error)              {}
func (NoopMetrics) OnBlock(int, int, int, time.Duration)       {}
func (NoopMetrics) OnAggregate(int, int, time.Duration, error) {}

// BasicMetrics counts events in memory.
type BasicMetrics struct {
	Samples        atomic.Int64
	SampleErrors   atomic.Int64
	SampleNanos    atomic.Int64
	Blocks         atomic.Int64
	BlockRows      atomic.Int64
	BlockFailed    atomic.Int64
	Aggregations   atomic.Int64
	AggregateRows  atomic.Int64
	AggregateDups  atomic.Int64
	AggregateError atomic.Int64
}

// OnSample implements MetricsObserver.
func (b *BasicMetrics) OnSample(duration time.Duration, err error) {
	b.Samples.Add(1)
	b.SampleNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SampleErrors.Add(1)
	}
}

// OnBlock implements MetricsObserver.
func (b *BasicMetrics) OnBlock(_, rows, failed int, _ time.Duration) {
	b.Blocks.Add(1)
	b.BlockRows.Add(int64(rows))
	b.BlockFailed.Add(int64(failed))
}

// OnAggregate implements MetricsObserver.
func (b *BasicMetrics) OnAggregate(rows, duplicates int, _ time.Duration, err error) {
	b.Aggregations.Add(1)
	if err != nil {
		b.AggregateError.Add(1)
		return
	}
	b.AggregateRows.Add(int64(rows))
	b.AggregateDups.Add(int64(duplicates))
}

// Stats returns a snapshot of current metrics.
func (b *BasicMetrics) Stats() MetricsStats {
	st := MetricsStats{
		Samples:      b.Samples.Load(),
		SampleErrors: b.SampleErrors.Load(),
		Blocks:       b.Blocks.Load(),
		BlockRows:    b.BlockRows.Load(),
		BlockFailed:  b.BlockFailed.Load(),
		Rows:         b.AggregateRows.Load(),
		Duplicates:   b.AggregateDups.Load(),
	}
	if st.Samples > 0 {
		st.SampleAvg = time.Duration(b.SampleNanos.Load() / st.Samples)
	}
	return st
}

// MetricsStats is a snapshot of BasicMetrics state.
type MetricsStats struct {
	Samples      int64
	SampleErrors int64
	SampleAvg    time.Duration
	Blocks       int64
	BlockRows    int64
	BlockFailed  int64
	Rows         int64
	Duplicates   int64
}
