// Package dataset stores generated radiative-property rows and loads them
// back for training.
//
// Rows travel through two representations. While a run is in progress,
// blocks are appended to a whitespace-delimited text file (AppendText,
// ReadText) at full float64 precision. Aggregate turns that text into the
// final artifact: a self-describing columnar container (magic "RDB0") that
// holds one or more float32 tables addressed by slash-separated paths.
//
// # Container Layout
//
//	+------------------+  offset 0
//	| header (64 B)    |  magic, version, table count, directory location, CRCs
//	+------------------+  offset 64
//	| column chunks    |  per table, per column: 8 B frame + float32 LE payload
//	+------------------+
//	| directory        |  tables, column names, chunk offsets and CRCs
//	+------------------+
//
// Column chunks are optionally compressed with LZ4 or ZSTD. Chunks that do
// not shrink by at least 10% are stored raw.
//
// # Loading
//
//	m, err := dataset.Load("radcal.rdb")     // table radcal/database
//	rows, cols := m.Shape()                  // (n, 26)
//
// Load memory-maps the file, verifies header, directory and column
// checksums and returns a row-major matrix. Loading never deduplicates;
// that happens exactly once, in Aggregate.
package dataset
