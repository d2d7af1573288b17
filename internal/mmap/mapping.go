package mmap

import (
	"io"
	"math"
	"os"
	"sync/atomic"
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path. Empty files yield an empty mapping without a
// system mapping behind it.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path) //nolint:gosec // G304: caller-chosen dataset path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	switch {
	case size == 0:
		return &Mapping{}, nil
	case size < 0 || size > math.MaxInt:
		return nil, ErrInvalidSize
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, unmap: unmap}, nil
}

// Close unmaps the file. Slices handed out earlier must not be used
// afterwards. Close is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap == nil || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}

// Size returns the mapped length in bytes.
func (m *Mapping) Size() int { return len(m.data) }

// Bytes returns the whole mapping, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Slice returns size bytes at offset. The result has its capacity clipped so
// appends cannot reach into the neighbouring chunk.
func (m *Mapping) Slice(offset, size int) ([]byte, error) {
	if err := m.check(offset, size); err != nil {
		return nil, err
	}
	return m.data[offset : offset+size : offset+size], nil
}

// Advise applies a to the whole mapping.
func (m *Mapping) Advise(a Advice) error {
	return m.AdviseRange(0, len(m.data), a)
}

// AdviseRange applies a to the pages covering [offset, offset+size).
func (m *Mapping) AdviseRange(offset, size int, a Advice) error {
	if err := m.check(offset, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	// madvise wants a page-aligned start.
	start := offset &^ (os.Getpagesize() - 1)
	return osAdvise(m.data[start:offset+size], a)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrOutOfBounds
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Mapping) check(offset, size int) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if offset < 0 || size < 0 || offset > len(m.data)-size {
		return ErrOutOfBounds
	}
	return nil
}
