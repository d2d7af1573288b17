package radbase

import (
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
	"github.com/hupe1980/radbase/sampler"
)

type options struct {
	sampler    sampler.Sampler
	invoker    oracle.Invoker
	oraclePath string
	oracleOpts []func(*oracle.Options)
	runnerOpts []func(*runner.Options)
	logger     *Logger
	metrics    MetricsCollector
}

// Option configures Generate.
type Option func(*options)

// WithSampler sets the scenario sampler. The default is sampler.NewTracked().
func WithSampler(s sampler.Sampler) Option {
	return func(o *options) {
		o.sampler = s
	}
}

// WithOracle runs the simulator executable at path for every scenario.
//
// Example:
//
//	radbase.WithOracle("/opt/radcal/bin/radcal", func(o *oracle.Options) {
//	    o.Timeout = time.Minute
//	})
func WithOracle(path string, optFns ...func(o *oracle.Options)) Option {
	return func(o *options) {
		o.oraclePath = path
		o.oracleOpts = append(o.oracleOpts, optFns...)
	}
}

// WithInvoker evaluates scenarios with inv instead of an executable.
// It takes precedence over WithOracle.
func WithInvoker(inv oracle.Invoker) Option {
	return func(o *options) {
		o.invoker = inv
	}
}

// WithRunnerOptions configures the batch runner: repeats, sample size,
// workers, failure policy, resume directory and publishing.
func WithRunnerOptions(optFns ...func(o *runner.Options)) Option {
	return func(o *options) {
		o.runnerOpts = append(o.runnerOpts, optFns...)
	}
}

// WithLogger sets the logger shared by the runner and the oracle.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets a metrics collector for monitoring runs.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}
