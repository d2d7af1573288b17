package radbase

import (
	"errors"

	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
)

var (
	// ErrNoOracle is returned by Generate without WithOracle or WithInvoker.
	ErrNoOracle = errors.New("radbase: no oracle configured")

	// ErrExecutable is returned when the simulator cannot be run.
	ErrExecutable = oracle.ErrExecutable

	// ErrTableNotFound is returned when a dataset lacks the requested table.
	ErrTableNotFound = dataset.ErrTableNotFound

	// ErrManifestMismatch is returned when resuming a run directory that
	// belongs to a run with different parameters.
	ErrManifestMismatch = runner.ErrManifestMismatch
)

// RunError is returned for a run that stopped after creating its run
// directory. Resume it by setting runner.Options.RunDir to RunError.RunDir.
type RunError = runner.RunError

// IsRecoverable reports whether err only invalidated a single sample.
func IsRecoverable(err error) bool {
	return oracle.IsRecoverable(err)
}
