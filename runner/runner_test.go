package runner

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/radbase/blobstore"
	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/internal/fs"
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/sampler"
	"github.com/hupe1980/radbase/scenario"
	"github.com/hupe1980/radbase/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub evaluates every scenario to its sentinel row.
var stub = oracle.InvokerFunc(func(_ context.Context, _ oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
	return testutil.SentinelRow(sc), nil
})

func newRunner(t *testing.T, inv oracle.Invoker, optFns ...func(o *Options)) *Runner {
	t.Helper()

	scratch := t.TempDir()
	r, err := New(sampler.NewTracked(), inv, append([]func(o *Options){
		func(o *Options) {
			o.ScratchDir = scratch
			o.Seed = 42
		},
	}, optFns...)...)
	require.NoError(t, err)

	return r
}

func TestRunEndToEnd(t *testing.T) {
	metrics := &BasicMetrics{}
	r := newRunner(t, stub, func(o *Options) {
		o.Repeats = 3
		o.SampleSize = 3
		o.Metrics = metrics
	})

	dst := filepath.Join(t.TempDir(), "radcal.rdb")
	res, err := r.Run(context.Background(), dst)
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Blocks)
	assert.Equal(t, 9, res.Samples)
	assert.True(t, res.Failed.IsEmpty())
	require.Len(t, res.Rows, 9)

	m, err := dataset.Load(dst)
	require.NoError(t, err)

	rows, cols := m.Shape()
	assert.Equal(t, 9, rows)
	assert.Equal(t, scenario.RowWidth, cols)

	for i, want := range res.Rows {
		for j := range want {
			assert.Equal(t, float32(want[j]), m.At(i, j), "row %d col %d", i, j)
		}
		sc := scenario.FromRow(want)
		require.NoError(t, sc.Validate())
	}

	// Cleanup removes the run directory.
	assert.NoDirExists(t, res.RunDir)

	assert.Equal(t, int64(9), metrics.Samples.Load())
	assert.Equal(t, int64(3), metrics.Blocks.Load())
	assert.Equal(t, int64(9), metrics.AggregateRows.Load())
}

func TestRunIsReproducible(t *testing.T) {
	run := func() []scenario.Row {
		r := newRunner(t, stub, func(o *Options) {
			o.Repeats = 2
			o.SampleSize = 5
		})
		res, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "db.rdb"))
		require.NoError(t, err)
		return res.Rows
	}

	assert.Equal(t, run(), run())
}

func TestRunSkipsExistingDestination(t *testing.T) {
	var calls atomic.Int64
	inv := oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		calls.Add(1)
		return stub(ctx, ws, sc)
	})

	dst := filepath.Join(t.TempDir(), "radcal.rdb")
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o600))
	before, err := os.Stat(dst)
	require.NoError(t, err)

	r := newRunner(t, inv, func(o *Options) { o.Repeats = 2 })
	for i := 0; i < 2; i++ {
		res, err := r.Run(context.Background(), dst)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Empty(t, res.Rows)
	}

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))

	after, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Zero(t, calls.Load())

	entries, err := os.ReadDir(r.Options().ScratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunOverrideReplaces(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "radcal.rdb")
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0o600))

	r := newRunner(t, stub, func(o *Options) {
		o.Override = true
		o.SampleSize = 4
	})
	res, err := r.Run(context.Background(), dst)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	m, err := dataset.Load(dst)
	require.NoError(t, err)
	rows, _ := m.Shape()
	assert.Equal(t, 4, rows)
}

// everyThird fails every third invocation with a simulator error.
func everyThird() oracle.Invoker {
	var calls atomic.Int64
	return oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		if calls.Add(1)%3 == 0 {
			return scenario.Row{}, &oracle.SimulationError{Line: "ERROR: mole fractions do not sum to unity"}
		}
		return stub(ctx, ws, sc)
	})
}

func TestRunFailureIsolation(t *testing.T) {
	t.Run("zero fill", func(t *testing.T) {
		r := newRunner(t, everyThird(), func(o *Options) {
			o.Repeats = 3
			o.SampleSize = 3
			o.FailurePolicy = ZeroFill
			o.Deduplicate = false
		})

		res, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "db.rdb"))
		require.NoError(t, err)
		require.Len(t, res.Rows, 9)

		var zero []int
		for i := range res.Rows {
			if res.Rows[i].IsZero() {
				zero = append(zero, i)
			}
		}
		assert.Equal(t, []int{2, 5, 8}, zero)
		assert.Equal(t, []uint32{2, 5, 8}, res.Failed.ToArray())

		// Surviving rows keep their evaluated values in sampling order.
		s := sampler.NewTracked()
		for b := 1; b <= 3; b++ {
			rng := sampler.NewRand(42, uint64(b))
			for i := 0; i < 3; i++ {
				sc := sampler.Draw(s, rng)
				idx := (b-1)*3 + i
				if res.Failed.Contains(uint32(idx)) {
					continue
				}
				assert.Equal(t, testutil.SentinelRow(&sc), res.Rows[idx], "row %d", idx)
			}
		}
	})

	t.Run("skip", func(t *testing.T) {
		metrics := &BasicMetrics{}
		r := newRunner(t, everyThird(), func(o *Options) {
			o.Repeats = 3
			o.SampleSize = 3
			o.Metrics = metrics
		})

		dst := filepath.Join(t.TempDir(), "db.rdb")
		res, err := r.Run(context.Background(), dst)
		require.NoError(t, err)
		require.Len(t, res.Rows, 6)
		for i := range res.Rows {
			assert.False(t, res.Rows[i].IsZero())
		}
		assert.Equal(t, []uint32{2, 5, 8}, res.Failed.ToArray())

		m, err := dataset.Load(dst)
		require.NoError(t, err)
		_, dropped := m.FilterZeroComposition()
		assert.Zero(t, dropped)

		assert.Equal(t, int64(3), metrics.SampleErrors.Load())
		assert.Equal(t, int64(3), metrics.BlockFailed.Load())
	})
}

func TestRunTimeoutIsRecoverable(t *testing.T) {
	var calls atomic.Int64
	inv := oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		if calls.Add(1) == 1 {
			return scenario.Row{}, &oracle.TimeoutError{Timeout: time.Second}
		}
		return stub(ctx, ws, sc)
	})

	r := newRunner(t, inv, func(o *Options) { o.SampleSize = 4 })
	res, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "db.rdb"))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, []uint32{0}, res.Failed.ToArray())
}

func TestRunFatalErrorAborts(t *testing.T) {
	var calls atomic.Int64
	inv := oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		if calls.Add(1) == 5 {
			return scenario.Row{}, &oracle.OutputError{Path: ws.OutputPath(), Line: 6}
		}
		return stub(ctx, ws, sc)
	})

	r := newRunner(t, inv, func(o *Options) {
		o.Repeats = 3
		o.SampleSize = 3
	})

	dst := filepath.Join(t.TempDir(), "db.rdb")
	_, err := r.Run(context.Background(), dst)
	require.Error(t, err)

	var oe *oracle.OutputError
	assert.ErrorAs(t, err, &oe)

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.DirExists(t, re.RunDir)
	assert.NoFileExists(t, dst)

	// Only the first block was committed.
	m, err := ReadManifest(nil, re.RunDir)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Blocks)
	assert.Equal(t, 3, m.Rows)
	assert.FileExists(t, filepath.Join(re.RunDir, "block-000001.txt"))
	assert.NoFileExists(t, filepath.Join(re.RunDir, "block-000002.txt"))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		cancel()
		<-ctx.Done()
		return scenario.Row{}, &oracle.TimeoutError{Timeout: time.Minute}
	})

	r := newRunner(t, inv, func(o *Options) { o.SampleSize = 2 })
	_, err := r.Run(ctx, filepath.Join(t.TempDir(), "db.rdb"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunResumeAfterTornAppend(t *testing.T) {
	ctx := context.Background()
	opts := func(o *Options) {
		o.Repeats = 3
		o.SampleSize = 3
	}

	ref, err := newRunner(t, stub, opts).Run(ctx, filepath.Join(t.TempDir(), "ref.rdb"))
	require.NoError(t, err)

	runDir := filepath.Join(t.TempDir(), "run")
	dst := filepath.Join(t.TempDir(), "db.rdb")

	// The fourth invocation belongs to block 2. From then on, appends to
	// raw.txt tear after a few bytes, as if the host died mid-write.
	faulty := fs.NewFaultyFS(fs.Default)
	var calls atomic.Int64
	inv := oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		if calls.Add(1) == 4 {
			faulty.AddRule("raw.txt", fs.Fault{FailAfterBytes: 100})
		}
		return stub(ctx, ws, sc)
	})

	_, err = newRunner(t, inv, opts, func(o *Options) {
		o.RunDir = runDir
		o.FS = faulty
	}).Run(ctx, dst)
	require.ErrorIs(t, err, fs.ErrInjected)

	m, err := ReadManifest(nil, runDir)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Blocks)

	info, err := os.Stat(filepath.Join(runDir, "raw.txt"))
	require.NoError(t, err)
	assert.Equal(t, m.RawLength+100, info.Size())

	res, err := newRunner(t, stub, opts, func(o *Options) {
		o.RunDir = runDir
	}).Run(ctx, dst)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resumed)
	assert.Equal(t, 2, res.Blocks)
	assert.Equal(t, m.RunID, res.RunID)
	assert.Equal(t, ref.Rows, res.Rows)

	// A caller-supplied run directory is emptied, not removed.
	entries, err := os.ReadDir(runDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunResumeRejectsOtherRun(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")

	_, err := newRunner(t, stub, func(o *Options) {
		o.RunDir = runDir
		o.Cleanup = false
	}).Run(context.Background(), filepath.Join(t.TempDir(), "a.rdb"))
	require.NoError(t, err)

	_, err = newRunner(t, stub, func(o *Options) {
		o.RunDir = runDir
		o.Seed = 7
	}).Run(context.Background(), filepath.Join(t.TempDir(), "b.rdb"))
	assert.ErrorIs(t, err, ErrManifestMismatch)
}

func TestRunResumeRejectsFewerRepeats(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")
	opts := func(o *Options) {
		o.RunDir = runDir
		o.SampleSize = 2
		o.Cleanup = false
	}

	_, err := newRunner(t, stub, opts, func(o *Options) { o.Repeats = 3 }).
		Run(context.Background(), filepath.Join(t.TempDir(), "a.rdb"))
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "b.rdb")
	_, err = newRunner(t, stub, opts, func(o *Options) { o.Repeats = 1 }).
		Run(context.Background(), dst)
	assert.ErrorIs(t, err, ErrManifestMismatch)
	assert.NoFileExists(t, dst)

	m, err := ReadManifest(nil, runDir)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Blocks)
}

func TestRunCleanupKeepsForeignFiles(t *testing.T) {
	runDir := t.TempDir()
	notes := filepath.Join(runDir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("keep me"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(runDir, "plots"), 0o750))

	dst := filepath.Join(t.TempDir(), "db.rdb")
	res, err := newRunner(t, stub, func(o *Options) {
		o.RunDir = runDir
		o.Repeats = 2
		o.SampleSize = 2
		o.Workers = 2
	}).Run(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, runDir, res.RunDir)

	assert.FileExists(t, dst)
	data, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
	assert.DirExists(t, filepath.Join(runDir, "plots"))

	entries, err := os.ReadDir(runDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"notes.txt", "plots"}, names)
}

func TestRunRejectsDestinationInsideRunDirectory(t *testing.T) {
	runDir := t.TempDir()

	for _, dst := range []string{
		filepath.Join(runDir, "db.rdb"),
		filepath.Join(runDir, "out", "db.rdb"),
	} {
		_, err := newRunner(t, stub, func(o *Options) {
			o.RunDir = runDir
		}).Run(context.Background(), dst)
		assert.ErrorIs(t, err, ErrInvalidOptions, dst)
		assert.NoFileExists(t, dst)
	}

	entries, err := os.ReadDir(runDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIsRunFile(t *testing.T) {
	for name, dir := range map[string]bool{
		"raw.txt":              false,
		"raw.txt.tmp":          false,
		"MANIFEST.json":        false,
		"MANIFEST.json.tmp":    false,
		"block-000001.txt":     false,
		"block-000042.txt.tmp": false,
		"block-1234567.txt":    false,
		"slot-00":              true,
		"slot-12":              true,
	} {
		assert.True(t, isRunFile(name, dir), name)
	}

	for name, dir := range map[string]bool{
		"notes.txt":     false,
		"block-1.txt":   false,
		"raw.txt.bak":   false,
		"slot-00":       false,
		"slot-x":        true,
		"MANIFEST.yaml": false,
	} {
		assert.False(t, isRunFile(name, dir), name)
	}
}

func TestRunKeepsRunDirectoryWithoutCleanup(t *testing.T) {
	r := newRunner(t, stub, func(o *Options) {
		o.Repeats = 2
		o.SampleSize = 2
		o.Cleanup = false
		o.Workers = 2
	})

	res, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "db.rdb"))
	require.NoError(t, err)

	for _, name := range []string{"block-000001.txt", "block-000002.txt", "raw.txt", "MANIFEST.json"} {
		assert.FileExists(t, filepath.Join(res.RunDir, name))
	}
	// Transient oracle files are gone.
	assert.NoDirExists(t, filepath.Join(res.RunDir, "slot-00"))
	assert.NoDirExists(t, filepath.Join(res.RunDir, "slot-01"))

	raw, err := os.ReadFile(filepath.Join(res.RunDir, "raw.txt"))
	require.NoError(t, err)
	rows, err := dataset.ReadText(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, res.Rows, rows)
}

func TestRunParallelKeepsOrder(t *testing.T) {
	var (
		mu       sync.Mutex
		inUse    = map[string]bool{}
		inFlight atomic.Int64
		peak     atomic.Int64
	)

	inv := oracle.InvokerFunc(func(ctx context.Context, ws oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		mu.Lock()
		if inUse[ws.Dir] {
			mu.Unlock()
			return scenario.Row{}, errors.New("workspace shared between invocations")
		}
		inUse[ws.Dir] = true
		mu.Unlock()

		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond) //nolint:gosec // jitter

		inFlight.Add(-1)
		mu.Lock()
		inUse[ws.Dir] = false
		mu.Unlock()

		return stub(ctx, ws, sc)
	})

	opts := func(o *Options) {
		o.Repeats = 3
		o.SampleSize = 16
	}

	seq, err := newRunner(t, stub, opts).Run(context.Background(), filepath.Join(t.TempDir(), "a.rdb"))
	require.NoError(t, err)

	par, err := newRunner(t, inv, opts, func(o *Options) { o.Workers = 4 }).
		Run(context.Background(), filepath.Join(t.TempDir(), "b.rdb"))
	require.NoError(t, err)

	assert.Equal(t, seq.Rows, par.Rows)
	assert.LessOrEqual(t, peak.Load(), int64(4))
}

func TestRunPublishes(t *testing.T) {
	store := blobstore.NewMemoryStore()
	r := newRunner(t, stub, func(o *Options) {
		o.SampleSize = 5
		o.Publish = store
		o.PublishName = "radcal/v1.rdb"
		o.PublishRate = 1 << 20
	})

	dst := filepath.Join(t.TempDir(), "db.rdb")
	res, err := r.Run(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, "radcal/v1.rdb", res.Published)

	local, err := dataset.Load(dst)
	require.NoError(t, err)
	remote, err := dataset.LoadBlob(context.Background(), store, "radcal/v1.rdb")
	require.NoError(t, err)
	assert.Equal(t, local.Data, remote.Data)
}

func TestRunWithFakeOracle(t *testing.T) {
	p, err := oracle.NewProcess(testutil.FakeOracle(t, testutil.FakeSuccess))
	require.NoError(t, err)

	r := newRunner(t, p, func(o *Options) {
		o.Repeats = 2
		o.SampleSize = 2
		o.Workers = 2
	})

	res, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "db.rdb"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)
	for i := range res.Rows {
		assert.Equal(t, testutil.FakeOutputs[:], res.Rows[i].Outputs())
	}
}

func TestNewValidatesOptions(t *testing.T) {
	s := sampler.NewTracked()

	_, err := New(nil, stub)
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = New(s, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	for name, fn := range map[string]func(o *Options){
		"sample size": func(o *Options) { o.SampleSize = 0 },
		"workers":     func(o *Options) { o.Workers = 0 },
		"repeats":     func(o *Options) { o.Repeats = -1 },
		"policy":      func(o *Options) { o.FailurePolicy = 9 },
		"index range": func(o *Options) { o.Repeats, o.SampleSize = 1<<16, 1<<16+1 },
	} {
		_, err := New(s, stub, fn)
		assert.ErrorIs(t, err, ErrInvalidOptions, name)
	}
}

func TestParseFailurePolicy(t *testing.T) {
	for _, p := range []FailurePolicy{SkipFailed, ZeroFill} {
		got, err := ParseFailurePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParseFailurePolicy("retry")
	assert.Error(t, err)
}
