package radbase

import (
	"context"

	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
	"github.com/hupe1980/radbase/sampler"
)

// Result describes a finished generation run.
type Result = runner.Result

// Generate samples scenarios, evaluates them with the oracle and writes the
// dataset to dst. An existing dst is left untouched unless the runner's
// Override option is set; Result.Skipped reports that case.
func Generate(ctx context.Context, dst string, opts ...Option) (*Result, error) {
	o := options{
		sampler: sampler.NewTracked(),
		logger:  NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	inv := o.invoker
	if inv == nil {
		if o.oraclePath == "" {
			return nil, ErrNoOracle
		}

		p, err := oracle.NewProcess(o.oraclePath, append([]func(*oracle.Options){
			func(po *oracle.Options) { po.Logger = o.logger.Logger },
		}, o.oracleOpts...)...)
		if err != nil {
			return nil, err
		}
		inv = p
	}

	r, err := runner.New(o.sampler, inv, append([]func(*runner.Options){
		func(ro *runner.Options) {
			ro.Logger = o.logger.Logger
			if o.metrics != nil {
				ro.Metrics = o.metrics
			}
		},
	}, o.runnerOpts...)...)
	if err != nil {
		return nil, err
	}

	return r.Run(ctx, dst)
}

// Load reads the result table of the dataset at path.
func Load(path string) (*dataset.Matrix, error) {
	return dataset.Load(path)
}

// Open opens a dataset container for inspection. The caller must Close it.
func Open(path string) (*dataset.File, error) {
	return dataset.Open(path)
}
