// Package runner generates a radiative-properties dataset in blocks.
//
// A run draws SampleSize scenarios per block from a Sampler, evaluates them
// with an oracle.Invoker and makes each block durable before the next one
// starts. After the last block the accumulated rows are aggregated into a
// dataset container.
//
// # Run directory
//
//	radbase-<uuid>/
//	├── MANIFEST.json      committed blocks, raw length, failed samples
//	├── raw.txt            all committed rows, one per line
//	├── block-000001.txt   rows of block 1
//	├── ...
//	└── slot-00/           oracle workspace of worker slot 0
//
// A block is committed in three steps: its block file is written atomically,
// its text is appended to raw.txt and fsynced, and the manifest is replaced
// with one recording the new raw length. A crash between the steps leaves
// trailing bytes in raw.txt that a resumed run truncates away.
//
// # Determinism
//
// Block b draws from sampler.NewRand(Seed, b), so a run is reproducible and
// independent of Workers. With Workers > 1 the invocations of one block run
// concurrently, each slot in its own workspace, and rows keep sampling order.
//
// # Usage
//
//	r, err := runner.New(sampler.NewTracked(), proc, func(o *runner.Options) {
//	    o.Repeats = 10
//	    o.SampleSize = 100
//	    o.Workers = 4
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := r.Run(ctx, "radcal.rdb")
package runner
