// Package mmap provides read-only memory-mapped file access.
//
// Dataset files are mapped instead of read so that loading a single table out
// of a multi-table container only touches the pages holding that table's
// column chunks.
//
// # Usage
//
//	m, err := mmap.Open("db.rdb")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Bounds-checked view of one column chunk
//	chunk, err := m.Slice(offset, size)
//
//	// Read-ahead hint for the pages holding that chunk
//	_ = m.AdviseRange(offset, size, mmap.AdviceSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Close is idempotent, but
// callers must not touch slices obtained from Bytes or Slice after Close.
package mmap
