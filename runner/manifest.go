package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/radbase/codec"
	"github.com/hupe1980/radbase/internal/fs"
)

const (
	manifestName = "MANIFEST.json"
	rawName      = "raw.txt"

	manifestVersion = 1
)

// ErrManifestMismatch is returned when a run directory belongs to a run
// with different sampling parameters.
var ErrManifestMismatch = errors.New("runner: run directory belongs to a different run")

// Manifest is the durable state of a run directory.
//
// It is rewritten atomically after every flushed block, so it always
// describes a prefix of raw.txt that is known to be complete.
type Manifest struct {
	Version    int    `json:"version"`
	Codec      string `json:"codec"`
	RunID      string `json:"run_id"`
	Seed       uint64 `json:"seed"`
	SampleSize int    `json:"sample_size"`
	Policy     string `json:"failure_policy"`

	// Blocks is the number of flushed blocks.
	Blocks int `json:"blocks"`

	// RawLength is the committed length of raw.txt in bytes.
	RawLength int64 `json:"raw_length"`

	Rows int `json:"rows"`

	// Failed holds the portable roaring serialization of the indices of
	// failed samples.
	Failed []byte `json:"failed,omitempty"`

	Updated time.Time `json:"updated"`
}

func (m *Manifest) failedBitmap() (*roaring.Bitmap, error) {
	bm := roaring.New()
	if len(m.Failed) == 0 {
		return bm, nil
	}
	if err := bm.UnmarshalBinary(m.Failed); err != nil {
		return nil, fmt.Errorf("runner: decode failed samples: %w", err)
	}
	return bm, nil
}

func (m *Manifest) setFailed(bm *roaring.Bitmap) error {
	if bm.IsEmpty() {
		m.Failed = nil
		return nil
	}
	b, err := bm.ToBytes()
	if err != nil {
		return fmt.Errorf("runner: encode failed samples: %w", err)
	}
	m.Failed = b
	return nil
}

// compatible reports whether a run with opts may continue m.
func (m *Manifest) compatible(opts *Options) error {
	switch {
	case m.Seed != opts.Seed:
		return fmt.Errorf("%w: seed %d, want %d", ErrManifestMismatch, m.Seed, opts.Seed)
	case m.SampleSize != opts.SampleSize:
		return fmt.Errorf("%w: sample size %d, want %d", ErrManifestMismatch, m.SampleSize, opts.SampleSize)
	case m.Policy != opts.FailurePolicy.String():
		return fmt.Errorf("%w: failure policy %s, want %s", ErrManifestMismatch, m.Policy, opts.FailurePolicy)
	case m.Blocks > opts.Repeats:
		return fmt.Errorf("%w: %d blocks committed, want %d repeats", ErrManifestMismatch, m.Blocks, opts.Repeats)
	}
	return nil
}

// ReadManifest reads the manifest of the run directory dir.
// A directory without a manifest yields an error wrapping fs.ErrNotExist.
func ReadManifest(fsys fs.FileSystem, dir string) (*Manifest, error) {
	if fsys == nil {
		fsys = fs.Default
	}

	f, err := fsys.OpenFile(filepath.Join(dir, manifestName), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("runner: read manifest: %w", err)
	}

	// The codec field is plain JSON under every codec we have shipped.
	var probe struct {
		Codec string `json:"codec"`
	}
	if err := codec.Default.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("runner: decode manifest: %w", err)
	}

	m := &Manifest{}
	if err := codec.Decode(probe.Codec, data, m); err != nil {
		return nil, fmt.Errorf("runner: decode manifest: %w", err)
	}

	if m.Version != manifestVersion {
		return nil, fmt.Errorf("runner: unsupported manifest version %d", m.Version)
	}

	return m, nil
}

func writeManifest(fsys fs.FileSystem, dir string, m *Manifest) error {
	m.Version = manifestVersion
	m.Codec = codec.Default.Name()
	m.Updated = time.Now().UTC()

	data, err := codec.Default.Marshal(m)
	if err != nil {
		return fmt.Errorf("runner: encode manifest: %w", err)
	}

	if err := fs.WriteFileAtomic(fsys, filepath.Join(dir, manifestName), data, 0o640); err != nil {
		return fmt.Errorf("runner: write manifest: %w", err)
	}

	return nil
}
