package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/hupe1980/radbase/blobstore"
	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/internal/fs"
)

// FailurePolicy decides what a recoverable sample failure leaves in its block.
type FailurePolicy int

const (
	// SkipFailed drops the failed sample. Blocks shrink accordingly.
	SkipFailed FailurePolicy = iota
	// ZeroFill keeps an all-zero row in place of the failed sample.
	ZeroFill
)

// String returns the policy name.
func (p FailurePolicy) String() string {
	switch p {
	case SkipFailed:
		return "skip"
	case ZeroFill:
		return "zero-fill"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy parses a policy name as returned by String.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(s) {
	case "skip", "":
		return SkipFailed, nil
	case "zero-fill", "zerofill", "zero":
		return ZeroFill, nil
	default:
		return 0, fmt.Errorf("runner: unknown failure policy %q", s)
	}
}

// Options configures a Runner.
type Options struct {
	// Repeats is the number of blocks to generate.
	Repeats int

	// SampleSize is the number of scenarios drawn per block.
	SampleSize int

	// Override replaces an existing destination. Without it, Run leaves an
	// existing destination untouched and reports Result.Skipped.
	Override bool

	// Cleanup removes the run directory after a successful aggregation.
	Cleanup bool

	// Seed makes a run reproducible. Block b draws from NewRand(Seed, b).
	Seed uint64

	// Workers is the number of concurrent invocations inside a block.
	Workers int

	// LaunchRate limits simulator launches per second. 0 means unlimited.
	LaunchRate float64

	FailurePolicy FailurePolicy

	// Deduplicate drops exact duplicate rows at aggregation.
	Deduplicate bool

	// ScratchDir is the parent of fresh run directories.
	ScratchDir string

	// RunDir names the run directory explicitly. A run directory holding a
	// manifest is resumed.
	RunDir string

	Compression dataset.Compression

	Logger  *slog.Logger
	Metrics MetricsObserver

	// FS is used for everything the runner writes into the run directory.
	FS fs.FileSystem

	// Publish, if set, receives the finished dataset.
	Publish blobstore.BlobStore

	// PublishName is the blob name. Defaults to the destination's base name.
	PublishName string

	// PublishRate limits the upload in bytes per second. 0 means unlimited.
	PublishRate int64
}

// DefaultOptions contains the default runner options.
var DefaultOptions = Options{
	Repeats:       1,
	SampleSize:    100,
	Cleanup:       true,
	Workers:       1,
	FailurePolicy: SkipFailed,
	Deduplicate:   true,
	Compression:   dataset.CompressionZSTD,
}

// ErrInvalidOptions is returned by New for unusable options.
var ErrInvalidOptions = errors.New("runner: invalid options")

func (o *Options) validate() error {
	switch {
	case o.Repeats < 0:
		return fmt.Errorf("%w: repeats %d", ErrInvalidOptions, o.Repeats)
	case o.SampleSize <= 0:
		return fmt.Errorf("%w: sample size %d", ErrInvalidOptions, o.SampleSize)
	case uint64(o.Repeats)*uint64(o.SampleSize) > math.MaxUint32:
		// Failed-sample indices are tracked as uint32 across the run.
		return fmt.Errorf("%w: %d repeats of %d samples exceed %d", ErrInvalidOptions, o.Repeats, o.SampleSize, uint64(math.MaxUint32))
	case o.Workers <= 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	case o.LaunchRate < 0:
		return fmt.Errorf("%w: launch rate %g", ErrInvalidOptions, o.LaunchRate)
	case o.PublishRate < 0:
		return fmt.Errorf("%w: publish rate %d", ErrInvalidOptions, o.PublishRate)
	case o.FailurePolicy != SkipFailed && o.FailurePolicy != ZeroFill:
		return fmt.Errorf("%w: %s", ErrInvalidOptions, o.FailurePolicy)
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.ScratchDir == "" {
		o.ScratchDir = os.TempDir()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.FS == nil {
		o.FS = fs.Default
	}
}
