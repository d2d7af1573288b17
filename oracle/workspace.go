package oracle

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Default transient file names inside a workspace.
const (
	DefaultInputName      = "RADCAL.in"
	DefaultOutputName     = "RADCAL.out"
	DefaultTranscriptName = "TRANSCRIPT.out"
)

// Workspace is a scratch directory owned by exactly one invocation slot.
//
// The oracle reads and writes fixed file names in its working directory;
// giving every slot its own directory keeps concurrent invocations apart.
type Workspace struct {
	Dir            string
	InputName      string
	OutputName     string
	TranscriptName string
}

// NewWorkspace creates dir (if needed) and returns a workspace using the
// default file names.
func NewWorkspace(dir string) (Workspace, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Workspace{}, err
	}
	return Workspace{
		Dir:            dir,
		InputName:      DefaultInputName,
		OutputName:     DefaultOutputName,
		TranscriptName: DefaultTranscriptName,
	}, nil
}

// InputPath returns the path of the oracle input file.
func (w Workspace) InputPath() string { return filepath.Join(w.Dir, w.InputName) }

// OutputPath returns the path of the oracle output file.
func (w Workspace) OutputPath() string { return filepath.Join(w.Dir, w.OutputName) }

// TranscriptPath returns the path of the oracle transcript file.
func (w Workspace) TranscriptPath() string { return filepath.Join(w.Dir, w.TranscriptName) }

// Clean removes the transient input, output and transcript files.
func (w Workspace) Clean() error {
	var errs []error
	for _, p := range []string{w.InputPath(), w.OutputPath(), w.TranscriptPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes the workspace directory and everything in it.
func (w Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}
