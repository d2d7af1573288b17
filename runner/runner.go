package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/hupe1980/radbase/blobstore"
	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/internal/fs"
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/resource"
	"github.com/hupe1980/radbase/sampler"
	"github.com/hupe1980/radbase/scenario"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/hupe1980/radbase/runner"

// Result describes a finished Run.
type Result struct {
	// Skipped is set when the destination existed and Override was off.
	// Nothing else is populated then.
	Skipped bool

	RunID  string
	RunDir string

	// Blocks is the number of blocks generated by this call, Resumed the
	// number found complete in the run directory.
	Blocks  int
	Resumed int

	// Samples is the number of invocations made by this call.
	Samples int

	// Failed holds the run-wide indices of recoverably failed samples.
	// Sample i of block b has index (b-1)*SampleSize + i.
	Failed *roaring.Bitmap

	// Rows are the aggregated rows at full precision.
	Rows       []scenario.Row
	Duplicates int

	Dataset   string
	Published string

	Elapsed time.Duration
}

// RunError is returned for a run that stopped after creating its run
// directory. The directory is kept, and running again with RunDir set to
// it resumes at the first incomplete block.
type RunError struct {
	RunID  string
	RunDir string
	cause  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("runner: run %s (%s): %v", e.RunID, e.RunDir, e.cause)
}

func (e *RunError) Unwrap() error { return e.cause }

// Runner generates a dataset by invoking the oracle on sampled scenarios.
//
// A Runner may be reused for several Runs, but Runs must not overlap.
type Runner struct {
	sampler sampler.Sampler
	inv     oracle.Invoker
	opts    Options
	log     *Logger
	ctrl    *resource.Controller
}

// New creates a Runner.
func New(s sampler.Sampler, inv oracle.Invoker, optFns ...func(o *Options)) (*Runner, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil sampler", ErrInvalidOptions)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: nil invoker", ErrInvalidOptions)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	return &Runner{
		sampler: s,
		inv:     inv,
		opts:    opts,
		log:     NewLogger(opts.Logger),
		ctrl: resource.NewController(resource.Config{
			MaxWorkers:         int64(opts.Workers),
			LaunchesPerSec:     opts.LaunchRate,
			IOLimitBytesPerSec: opts.PublishRate,
		}),
	}, nil
}

// Options returns the effective options.
func (r *Runner) Options() Options {
	return r.opts
}

// Run generates the dataset at dst.
//
// Recoverable sample failures are recorded in Result.Failed and handled per
// FailurePolicy. Any other invoker error, an I/O error or ctx cancellation
// aborts the run with a *RunError.
func (r *Runner) Run(ctx context.Context, dst string) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "runner.Run", trace.WithAttributes(
		attribute.String("dataset", dst),
		attribute.Int("repeats", r.opts.Repeats),
		attribute.Int("sample_size", r.opts.SampleSize),
		attribute.Int("workers", r.opts.Workers),
	))
	defer span.End()

	res, err := r.run(ctx, dst)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("skipped", res.Skipped),
		attribute.Int("rows", len(res.Rows)),
		attribute.Int("failed", int(res.Failed.GetCardinality())),
	)

	return res, nil
}

type runState struct {
	dir string
	// owned is set for directories the runner named itself. Only those are
	// removed wholesale on cleanup.
	owned    bool
	manifest *Manifest
	failed   *roaring.Bitmap
	slots    []oracle.Workspace
}

func (st *runState) rawPath() string {
	return filepath.Join(st.dir, rawName)
}

func (r *Runner) run(ctx context.Context, dst string) (*Result, error) {
	start := time.Now()

	if !r.opts.Override {
		_, err := r.opts.FS.Stat(dst)
		switch {
		case err == nil:
			r.log.LogSkip(ctx, dst)
			return &Result{Skipped: true, Dataset: dst, Failed: roaring.New()}, nil
		case !errors.Is(err, iofs.ErrNotExist):
			return nil, fmt.Errorf("runner: stat destination: %w", err)
		}
	}

	if r.opts.RunDir != "" {
		inside, err := within(dst, r.opts.RunDir)
		if err != nil {
			return nil, err
		}
		if inside {
			return nil, fmt.Errorf("%w: destination %s lies inside run directory %s", ErrInvalidOptions, dst, r.opts.RunDir)
		}
	}

	st, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	log := r.log.WithRun(st.manifest.RunID)
	fail := func(err error) (*Result, error) {
		return nil, &RunError{RunID: st.manifest.RunID, RunDir: st.dir, cause: err}
	}

	res := &Result{
		RunID:   st.manifest.RunID,
		RunDir:  st.dir,
		Resumed: st.manifest.Blocks,
		Dataset: dst,
	}

	for b := st.manifest.Blocks + 1; b <= r.opts.Repeats; b++ {
		if err := r.block(ctx, st, b, log); err != nil {
			return fail(err)
		}
		res.Blocks++
		res.Samples += r.opts.SampleSize
	}

	for _, ws := range st.slots {
		if err := ws.Remove(); err != nil {
			log.WarnContext(ctx, "remove workspace", "dir", ws.Dir, "error", err)
		}
	}

	aggStart := time.Now()
	agg, err := dataset.AggregateFile(ctx, st.rawPath(), dst, func(o *dataset.AggregateOptions) {
		o.Deduplicate = r.opts.Deduplicate
		o.Compression = r.opts.Compression
		o.Logger = log.Logger
	})
	if err != nil {
		r.opts.Metrics.OnAggregate(0, 0, time.Since(aggStart), err)
		return fail(err)
	}
	r.opts.Metrics.OnAggregate(len(agg.Rows), agg.Duplicates, agg.Elapsed, nil)

	res.Rows = agg.Rows
	res.Duplicates = agg.Duplicates
	res.Failed = st.failed

	if r.opts.Publish != nil {
		name := r.opts.PublishName
		if name == "" {
			name = filepath.Base(dst)
		}
		n, err := r.publish(ctx, dst, name)
		log.LogPublish(ctx, name, n, err)
		if err != nil {
			return fail(err)
		}
		res.Published = name
	}

	if r.opts.Cleanup {
		if err := r.cleanup(st); err != nil {
			log.WarnContext(ctx, "remove run directory", "dir", st.dir, "error", err)
		}
	}

	res.Elapsed = time.Since(start)
	log.InfoContext(ctx, "run completed",
		"dataset", dst,
		"blocks", res.Blocks,
		"resumed", res.Resumed,
		"rows", len(res.Rows),
		"failed", res.Failed.GetCardinality(),
		"duplicates", res.Duplicates,
		"elapsed", res.Elapsed,
	)

	return res, nil
}

// open creates or resumes the run directory.
func (r *Runner) open(ctx context.Context) (*runState, error) {
	fsys := r.opts.FS
	dir := r.opts.RunDir

	owned := dir == ""

	var m *Manifest
	if dir != "" {
		existing, err := ReadManifest(fsys, dir)
		switch {
		case err == nil:
			if err := existing.compatible(&r.opts); err != nil {
				return nil, err
			}
			m = existing
		case errors.Is(err, iofs.ErrNotExist):
		default:
			return nil, err
		}
	}

	if m == nil {
		id := uuid.NewString()
		if dir == "" {
			dir = filepath.Join(r.opts.ScratchDir, "radbase-"+id)
		}
		m = &Manifest{
			RunID:      id,
			Seed:       r.opts.Seed,
			SampleSize: r.opts.SampleSize,
			Policy:     r.opts.FailurePolicy.String(),
		}
	}

	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("runner: create run directory: %w", err)
	}

	st := &runState{dir: dir, owned: owned, manifest: m}
	if err := recoverRaw(fsys, st.rawPath(), m.RawLength); err != nil {
		return nil, err
	}

	failed, err := m.failedBitmap()
	if err != nil {
		return nil, err
	}
	st.failed = failed

	if m.Blocks > 0 {
		r.log.WithRun(m.RunID).LogResume(ctx, dir, m.Blocks, m.RawLength)
	} else if err := writeManifest(fsys, dir, m); err != nil {
		return nil, err
	}

	for i := 0; i < r.opts.Workers; i++ {
		ws, err := oracle.NewWorkspace(filepath.Join(dir, fmt.Sprintf("slot-%02d", i)))
		if err != nil {
			return nil, fmt.Errorf("runner: create workspace: %w", err)
		}
		st.slots = append(st.slots, ws)
	}

	return st, nil
}

// cleanup removes the run's files. A caller-supplied run directory keeps
// everything the runner did not write into it.
func (r *Runner) cleanup(st *runState) error {
	fsys := r.opts.FS
	if st.owned {
		return fsys.RemoveAll(st.dir)
	}

	entries, err := fsys.ReadDir(st.dir)
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		if !isRunFile(e.Name(), e.IsDir()) {
			continue
		}
		if err := fsys.RemoveAll(filepath.Join(st.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func blockName(b int) string {
	return fmt.Sprintf("block-%06d.txt", b)
}

// isRunFile reports whether name is one of the files a run creates in its
// directory, including leftovers of an interrupted atomic write.
func isRunFile(name string, dir bool) bool {
	if dir {
		ok, _ := filepath.Match("slot-[0-9][0-9]*", name)
		return ok
	}
	name = strings.TrimSuffix(name, ".tmp")
	switch name {
	case rawName, manifestName:
		return true
	}
	ok, _ := filepath.Match("block-[0-9][0-9][0-9][0-9][0-9][0-9]*.txt", name)
	return ok
}

// within reports whether path lies inside dir.
func within(path, dir string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

// recoverRaw brings raw.txt to its committed length. Bytes past it belong
// to a block whose manifest commit never happened.
func recoverRaw(fsys fs.FileSystem, path string, committed int64) error {
	info, err := fsys.Stat(path)
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		if committed > 0 {
			return fmt.Errorf("runner: %s is missing, manifest commits %d bytes", path, committed)
		}
		f, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
		if err != nil {
			return fmt.Errorf("runner: create raw file: %w", err)
		}
		return f.Close()
	case err != nil:
		return fmt.Errorf("runner: stat raw file: %w", err)
	case info.Size() < committed:
		return fmt.Errorf("runner: %s has %d bytes, manifest commits %d", path, info.Size(), committed)
	case info.Size() > committed:
		if err := fsys.Truncate(path, committed); err != nil {
			return fmt.Errorf("runner: truncate raw file: %w", err)
		}
	}
	return nil
}

// block generates and flushes block b.
func (r *Runner) block(ctx context.Context, st *runState, b int, log *Logger) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "runner.block", trace.WithAttributes(
		attribute.Int("block", b),
	))
	defer span.End()

	start := time.Now()

	rows, failed, err := r.sample(ctx, st, b, log)
	if err == nil {
		err = r.flush(st, b, rows, failed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("failed", len(failed)),
	)
	r.opts.Metrics.OnBlock(b, len(rows), len(failed), elapsed)
	log.LogBlock(ctx, b, len(rows), len(failed), elapsed)

	return nil
}

// sample draws the scenarios of block b and evaluates them. The returned
// rows keep sampling order. failed holds run-wide sample indices.
func (r *Runner) sample(ctx context.Context, st *runState, b int, log *Logger) ([]scenario.Row, []uint32, error) {
	n := r.opts.SampleSize
	first := uint32((b - 1) * n) //nolint:gosec // G115: bounded by repeats*samplesize

	rng := sampler.NewRand(r.opts.Seed, uint64(b)) //nolint:gosec // G115: b > 0
	scenarios := make([]scenario.Scenario, n)
	for i := range scenarios {
		scenarios[i] = sampler.Draw(r.sampler, rng)
	}

	rows := make([]scenario.Row, n)
	bad := make([]bool, n)

	slots := make(chan oracle.Workspace, len(st.slots))
	for _, ws := range st.slots {
		slots <- ws
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range scenarios {
		// Fails only once gctx is done. g.Wait or ctx.Err report why.
		if err := r.ctrl.AcquireWorker(gctx); err != nil {
			break
		}

		g.Go(func() error {
			defer r.ctrl.ReleaseWorker()

			ws := <-slots
			defer func() { slots <- ws }()

			start := time.Now()
			row, err := r.inv.Invoke(gctx, ws, &scenarios[i])
			r.opts.Metrics.OnSample(time.Since(start), err)

			if err != nil {
				if gctx.Err() == nil && oracle.IsRecoverable(err) {
					bad[i] = true
					log.LogSampleFailure(gctx, first+uint32(i), err) //nolint:gosec // G115: i < n
					return nil
				}
				return fmt.Errorf("runner: block %d sample %d: %w", b, i, err)
			}

			rows[i] = row
			return nil
		})
	}

	err := g.Wait()
	if cerr := ctx.Err(); cerr != nil {
		// Cancellation takes precedence over what it caused.
		return nil, nil, fmt.Errorf("runner: block %d: %w", b, cerr)
	}
	if err != nil {
		return nil, nil, err
	}

	out := make([]scenario.Row, 0, n)
	var failed []uint32
	for i := range rows {
		if bad[i] {
			failed = append(failed, first+uint32(i)) //nolint:gosec // G115: i < n
			if r.opts.FailurePolicy == ZeroFill {
				out = append(out, scenario.Row{})
			}
			continue
		}
		out = append(out, rows[i])
	}

	return out, failed, nil
}

// flush makes block b durable: the block file, the raw append and finally
// the manifest commit.
func (r *Runner) flush(st *runState, b int, rows []scenario.Row, failed []uint32) error {
	fsys := r.opts.FS
	text := dataset.AppendText(nil, rows)

	blockPath := filepath.Join(st.dir, blockName(b))
	if err := fs.WriteFileAtomic(fsys, blockPath, text, 0o640); err != nil {
		return fmt.Errorf("runner: write block %d: %w", b, err)
	}

	if err := appendSync(fsys, st.rawPath(), text); err != nil {
		return fmt.Errorf("runner: append block %d: %w", b, err)
	}

	bm := st.failed.Clone()
	bm.AddMany(failed)

	m := *st.manifest
	m.Blocks = b
	m.RawLength += int64(len(text))
	m.Rows += len(rows)
	if err := m.setFailed(bm); err != nil {
		return err
	}
	if err := writeManifest(fsys, st.dir, &m); err != nil {
		return err
	}

	*st.manifest = m
	st.failed = bm

	return nil
}

func appendSync(fsys fs.FileSystem, path string, data []byte) error {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o640)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// publish copies the dataset at path into the publish store.
func (r *Runner) publish(ctx context.Context, path, name string) (int64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: dataset written by this run
	if err != nil {
		return 0, fmt.Errorf("runner: open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	w, err := r.opts.Publish.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("runner: publish %s: %w", name, err)
	}

	n, err := io.Copy(w, resource.NewRateLimitedReader(ctx, f, r.ctrl))
	if err != nil {
		_ = blobstore.Abort(w)
		return n, fmt.Errorf("runner: publish %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("runner: publish %s: %w", name, err)
	}

	return n, nil
}
