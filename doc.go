// Package radbase generates datasets of radiative properties of combustion
// gases for training surrogate models.
//
// A run samples thermodynamic scenarios (temperatures, path length,
// pressure, composition), evaluates each one with an external
// radiative-transfer simulator and stores the results as a float32 table
// in a compressed columnar container.
//
// # Quick Start
//
//	res, err := radbase.Generate(ctx, "radcal.rdb",
//	    radbase.WithOracle("/opt/radcal/bin/radcal"),
//	    radbase.WithRunnerOptions(func(o *runner.Options) {
//	        o.Repeats = 10
//	        o.SampleSize = 1000
//	        o.Workers = 8
//	    }),
//	)
//
//	m, err := radbase.Load("radcal.rdb") // (10000, 26) float32
//
// # Rows
//
// Every row has 26 columns in a fixed order: OMMIN, OMMAX, TWALL, T,
// LENGTH, PRESSURE, FV, the 14 mole fractions and the five outputs
// INTENSITY, AMEAN_PLANCK, AMEAN_EFF, EMISSIVITY and TRANSMISSIVITY.
//
// # Durability
//
// Blocks are committed to a run directory one at a time. A run that fails
// or is interrupted returns a *RunError naming the directory, and a later
// run with runner.Options.RunDir set to it continues at the first
// incomplete block.
//
// # Packages
//
//   - sampler: scenario distributions
//   - oracle: the simulator subprocess protocol
//   - runner: blocks, workers, resume
//   - dataset: the columnar container, aggregation and loading
//   - blobstore: publishing to local disk, S3 or MinIO
//   - scaler: feature standardization artifact
//   - observability: Prometheus metrics and tracing
package radbase
