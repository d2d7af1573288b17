package dataset

import (
	"fmt"
	"io"

	"github.com/hupe1980/radbase/persistence"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Compression is applied to every column chunk.
	Compression Compression
}

// DefaultWriterOptions contains the default writer options.
var DefaultWriterOptions = WriterOptions{
	Compression: CompressionZSTD,
}

// Writer assembles a container from one or more tables.
//
// Tables are staged in memory by AddTable; WriteTo lays out the header, the
// column chunks of every table in insertion order and finally the directory.
type Writer struct {
	opts   WriterOptions
	tables []*stagedTable
	paths  map[string]struct{}
}

type stagedTable struct {
	info   TableInfo
	chunks [][]byte
}

// NewWriter returns an empty container writer.
func NewWriter(optFns ...func(o *WriterOptions)) (*Writer, error) {
	opts := DefaultWriterOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if !opts.Compression.valid() {
		return nil, fmt.Errorf("dataset: unsupported compression %s", opts.Compression)
	}
	return &Writer{
		opts:  opts,
		paths: make(map[string]struct{}),
	}, nil
}

// AddTable stages m under path. Column chunks are compressed immediately so
// m may be reused afterwards.
func (w *Writer) AddTable(path string, m *Matrix) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	if _, dup := w.paths[path]; dup {
		return fmt.Errorf("dataset: duplicate table %q", path)
	}
	for p := range w.paths {
		if isAncestor(p, path) || isAncestor(path, p) {
			return fmt.Errorf("%w: %q collides with table %q", ErrInvalidPath, path, p)
		}
	}
	if m.Cols <= 0 || len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("dataset: matrix shape (%d, %d) does not match %d values", m.Rows, m.Cols, len(m.Data))
	}

	columns := m.Columns
	if columns == nil {
		columns = make([]string, m.Cols)
		for j := range columns {
			columns[j] = fmt.Sprintf("c%d", j)
		}
	}
	if len(columns) != m.Cols {
		return fmt.Errorf("dataset: %d column names for %d columns", len(columns), m.Cols)
	}

	st := &stagedTable{
		info: TableInfo{
			Path:        path,
			Rows:        m.Rows,
			Cols:        m.Cols,
			Columns:     append([]string(nil), columns...),
			Compression: w.opts.Compression,
		},
		chunks: make([][]byte, m.Cols),
	}

	col := make([]float32, m.Rows)
	raw := make([]byte, 0, 4*m.Rows)
	for j := 0; j < m.Cols; j++ {
		for i := range col {
			col[i] = m.Data[i*m.Cols+j]
		}
		raw = persistence.AppendFloat32s(raw[:0], col)

		chunk, err := compressChunk(raw, w.opts.Compression)
		if err != nil {
			return fmt.Errorf("dataset: compress %s/%s: %w", path, columns[j], err)
		}
		st.chunks[j] = chunk
	}

	w.tables = append(w.tables, st)
	w.paths[path] = struct{}{}
	return nil
}

func isAncestor(group, path string) bool {
	return len(path) > len(group) && path[:len(group)] == group && path[len(group)] == '/'
}

// WriteTo writes the container to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	dir := persistence.NewEncoder(1024)
	offset := uint64(HeaderSize)

	for _, st := range w.tables {
		if err := dir.PutString(st.info.Path); err != nil {
			return 0, err
		}
		dir.PutUint64(uint64(st.info.Rows)) //nolint:gosec // non-negative
		dir.PutUint32(uint32(st.info.Cols)) //nolint:gosec // bounded by chunk count
		dir.PutUint8(uint8(st.info.Compression))

		for j, chunk := range st.chunks {
			if err := dir.PutString(st.info.Columns[j]); err != nil {
				return 0, err
			}
			dir.PutUint64(offset)
			dir.PutUint64(uint64(len(chunk)))
			dir.PutUint32(persistence.CalculateChecksum(chunk))
			offset += uint64(len(chunk))
		}
	}

	h := fileHeader{
		Version:     FormatVersion,
		TableCount:  uint32(len(w.tables)), //nolint:gosec // small
		DirOffset:   offset,
		DirLength:   uint64(dir.Len()),
		DirChecksum: persistence.CalculateChecksum(dir.Bytes()),
	}

	cw := persistence.NewChecksumWriter(dst)
	if _, err := cw.Write(h.marshal()); err != nil {
		return cw.Written(), err
	}
	for _, st := range w.tables {
		for _, chunk := range st.chunks {
			if _, err := cw.Write(chunk); err != nil {
				return cw.Written(), err
			}
		}
	}
	if _, err := cw.Write(dir.Bytes()); err != nil {
		return cw.Written(), err
	}

	return cw.Written(), nil
}

// Save atomically writes the container to path, replacing any existing file.
func (w *Writer) Save(path string) error {
	return persistence.SaveToFile(path, func(dst io.Writer) error {
		_, err := w.WriteTo(dst)
		return err
	})
}
