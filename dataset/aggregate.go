package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/radbase/scenario"
)

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	// Path is the table path inside the container.
	Path string

	// Deduplicate drops exact duplicate rows before writing.
	Deduplicate bool

	// Compression is applied to the column chunks.
	Compression Compression

	// Logger receives a summary record. Nil discards it.
	Logger *slog.Logger
}

// DefaultAggregateOptions contains the default aggregation options.
var DefaultAggregateOptions = AggregateOptions{
	Path:        DefaultPath,
	Deduplicate: true,
	Compression: CompressionZSTD,
}

// Aggregation describes a completed aggregation.
type Aggregation struct {
	// Rows are the rows written, at full precision.
	Rows []scenario.Row

	// Read is the number of rows decoded from the raw text.
	Read int

	// Duplicates is the number of rows dropped by deduplication.
	Duplicates int

	// Path is the destination file, Table the table path inside it.
	Path  string
	Table string

	Elapsed time.Duration
}

// Aggregate decodes the raw accumulation text, deduplicates it and writes
// the rows as float32 into a container at dst, replacing dst atomically.
func Aggregate(ctx context.Context, raw io.Reader, dst string, optFns ...func(o *AggregateOptions)) (*Aggregation, error) {
	opts := DefaultAggregateOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()

	rows, err := ReadText(raw)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agg := &Aggregation{
		Read:  len(rows),
		Path:  dst,
		Table: opts.Path,
	}
	if opts.Deduplicate {
		rows, agg.Duplicates = Deduplicate(rows)
	}
	agg.Rows = rows

	w, err := NewWriter(func(o *WriterOptions) { o.Compression = opts.Compression })
	if err != nil {
		return nil, err
	}
	if err := w.AddTable(opts.Path, FromRows(rows)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := w.Save(dst); err != nil {
		return nil, fmt.Errorf("dataset: write %s: %w", dst, err)
	}

	agg.Elapsed = time.Since(start)

	opts.Logger.Info("dataset aggregated",
		slog.String("path", dst),
		slog.String("table", opts.Path),
		slog.Int("read", agg.Read),
		slog.Int("rows", len(agg.Rows)),
		slog.Int("duplicates", agg.Duplicates),
		slog.Duration("elapsed", agg.Elapsed),
	)

	return agg, nil
}

// AggregateFile is Aggregate reading the raw text from rawPath.
func AggregateFile(ctx context.Context, rawPath, dst string, optFns ...func(o *AggregateOptions)) (*Aggregation, error) {
	f, err := os.Open(rawPath) //nolint:gosec // G304: run directory
	if err != nil {
		return nil, fmt.Errorf("dataset: open raw text: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Aggregate(ctx, f, dst, optFns...)
}
