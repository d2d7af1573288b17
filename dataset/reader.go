package dataset

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/hupe1980/radbase/internal/mmap"
	"github.com/hupe1980/radbase/persistence"
)

// File is an open, read-only dataset container.
//
// Thread safety: Tables and Table are safe for concurrent use until Close.
type File struct {
	closed atomic.Bool
	name   string
	data   []byte
	m      *mmap.Mapping // nil for in-memory containers
	header fileHeader
	tables []*tableEntry
	byPath map[string]*tableEntry
}

// Open memory-maps the container at path and validates its header and
// directory. Column checksums are verified lazily by Table.
//
// A missing file yields an error wrapping fs.ErrNotExist.
func Open(path string) (*File, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}

	f, err := parse(path, m.Bytes())
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	f.m = m

	return f, nil
}

// OpenBytes parses an in-memory container. name is used in error messages.
func OpenBytes(name string, data []byte) (*File, error) {
	f, err := parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", name, err)
	}
	return f, nil
}

func parse(name string, data []byte) (*File, error) {
	f := &File{
		name:   name,
		data:   data,
		byPath: make(map[string]*tableEntry),
	}

	if err := f.header.unmarshal(data); err != nil {
		return nil, err
	}

	h := &f.header
	if h.DirOffset < HeaderSize || h.DirOffset > uint64(len(data)) || h.DirLength > uint64(len(data))-h.DirOffset {
		return nil, fmt.Errorf("%w: directory out of bounds", ErrCorrupted)
	}
	dir := data[h.DirOffset : h.DirOffset+h.DirLength]
	if err := persistence.VerifyChecksum(dir, h.DirChecksum); err != nil {
		return nil, fmt.Errorf("%w: directory: %v", ErrCorrupted, err)
	}

	r := persistence.NewSliceReader(dir)
	for t := uint32(0); t < h.TableCount; t++ {
		e, err := readTableEntry(r, h.DirOffset)
		if err != nil {
			return nil, fmt.Errorf("%w: table %d: %v", ErrCorrupted, t, err)
		}
		if _, dup := f.byPath[e.Path]; dup {
			return nil, fmt.Errorf("%w: duplicate table %q", ErrCorrupted, e.Path)
		}
		f.tables = append(f.tables, e)
		f.byPath[e.Path] = e
	}
	if len(r.Remaining()) != 0 {
		return nil, fmt.Errorf("%w: trailing directory bytes", ErrCorrupted)
	}

	return f, nil
}

func readTableEntry(r *persistence.SliceReader, limit uint64) (*tableEntry, error) {
	path, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	rows, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	cols, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	comp, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	e := &tableEntry{
		TableInfo: TableInfo{
			Path:        path,
			Rows:        int(rows), //nolint:gosec // checked against chunk sizes below
			Cols:        int(cols),
			Compression: Compression(comp),
		},
	}
	if !e.Compression.valid() {
		return nil, fmt.Errorf("unknown compression %d", comp)
	}
	if rows > limit/4 {
		return nil, fmt.Errorf("row count %d exceeds file size", rows)
	}
	// Every column descriptor takes at least 22 bytes.
	if uint64(cols)*22 > uint64(len(r.Remaining())) {
		return nil, fmt.Errorf("column count %d exceeds directory size", cols)
	}

	e.Columns = make([]string, cols)
	e.chunks = make([]columnChunk, cols)
	for j := range e.chunks {
		if e.Columns[j], err = r.ReadString(); err != nil {
			return nil, err
		}
		c := &e.chunks[j]
		if c.Offset, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		if c.Length, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		if c.Checksum, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if c.Offset < HeaderSize || c.Offset > limit || c.Length > limit-c.Offset {
			return nil, fmt.Errorf("column %q out of bounds", e.Columns[j])
		}
	}

	return e, nil
}

// Name returns the path or name the container was opened from.
func (f *File) Name() string { return f.name }

// Tables lists the tables in directory order.
func (f *File) Tables() []TableInfo {
	out := make([]TableInfo, len(f.tables))
	for i, e := range f.tables {
		out[i] = e.TableInfo
		out[i].Columns = append([]string(nil), e.Columns...)
	}
	return out
}

// Groups lists every group (including intermediate ones) in sorted order.
func (f *File) Groups() []string {
	seen := make(map[string]struct{})
	for _, e := range f.tables {
		g := e.Group()
		for g != "" {
			seen[g] = struct{}{}
			i := lastSlash(g)
			if i < 0 {
				break
			}
			g = g[:i]
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// Info returns the description of the table at path.
func (f *File) Info(path string) (TableInfo, error) {
	e, err := f.lookup(path)
	if err != nil {
		return TableInfo{}, err
	}
	return e.TableInfo, nil
}

func (f *File) lookup(path string) (*tableEntry, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	e, ok := f.byPath[clean]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrTableNotFound, path, f.name)
	}
	return e, nil
}

// Table decodes the table at path into a new matrix, verifying every
// column checksum.
func (f *File) Table(path string) (*Matrix, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}

	e, err := f.lookup(path)
	if err != nil {
		return nil, err
	}

	f.advise(e)

	m := &Matrix{
		Rows:    e.Rows,
		Cols:    e.Cols,
		Columns: append([]string(nil), e.Columns...),
		Data:    make([]float32, e.Rows*e.Cols),
	}

	col := make([]float32, e.Rows)
	for j, c := range e.chunks {
		chunk := f.data[c.Offset : c.Offset+c.Length]
		if err := persistence.VerifyChecksum(chunk, c.Checksum); err != nil {
			return nil, fmt.Errorf("%w: %s column %q: %v", ErrCorrupted, e.Path, e.Columns[j], err)
		}

		raw, err := decompressChunk(chunk, e.Compression)
		if err != nil {
			return nil, fmt.Errorf("%s column %q: %w", e.Path, e.Columns[j], err)
		}
		if err := persistence.DecodeFloat32s(col, raw); err != nil {
			return nil, fmt.Errorf("%w: %s column %q: %v", ErrCorrupted, e.Path, e.Columns[j], err)
		}

		for i, v := range col {
			m.Data[i*e.Cols+j] = v
		}
	}

	return m, nil
}

// advise hints the kernel that the table's chunks are about to be read.
func (f *File) advise(e *tableEntry) {
	if f.m == nil || len(e.chunks) == 0 {
		return
	}
	start, end := e.chunks[0].Offset, e.chunks[0].Offset
	for _, c := range e.chunks {
		start = min(start, c.Offset)
		end = max(end, c.Offset+c.Length)
	}
	_ = f.m.AdviseRange(int(start), int(end-start), mmap.AdviceSequential) //nolint:gosec // G115: bounds validated on open
}

// Close releases the mapping. It is idempotent.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.m != nil {
		return f.m.Close()
	}
	return nil
}
