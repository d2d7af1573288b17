package radbase_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/radbase"
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
	"github.com/hupe1980/radbase/scenario"
)

// Example_generate demonstrates generating and loading a small dataset.
func Example_generate() {
	dir, err := os.MkdirTemp("", "radbase-example")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	// A stand-in for the simulator: constant outputs.
	inv := oracle.InvokerFunc(func(_ context.Context, _ oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		row := sc.Row()
		copy(row[scenario.ColOutputs:], []float64{1, 0.5, 0.5, 0.3, 0.7})
		return row, nil
	})

	dst := filepath.Join(dir, "radcal.rdb")
	res, err := radbase.Generate(context.Background(), dst,
		radbase.WithInvoker(inv),
		radbase.WithRunnerOptions(func(o *runner.Options) {
			o.Repeats = 3
			o.SampleSize = 3
			o.Seed = 1
			o.ScratchDir = dir
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	m, err := radbase.Load(dst)
	if err != nil {
		log.Fatal(err)
	}

	rows, cols := m.Shape()
	fmt.Println(len(res.Rows), rows, cols)
	// Output: 9 9 26
}
