package runner

import (
	"context"
	"log/slog"
	"time"
)

// Logger wraps slog.Logger with run-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps l. A nil l discards all output.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Logger{Logger: l}
}

// WithRun adds the run ID to the logger.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// WithBlock adds a block index field to the logger.
func (l *Logger) WithBlock(index int) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", index),
	}
}

// LogSkip logs that an existing destination was left untouched.
func (l *Logger) LogSkip(ctx context.Context, dst string) {
	l.WarnContext(ctx, "destination exists, skipping generation",
		"path", dst,
	)
}

// LogSampleFailure logs a recoverable sample failure.
func (l *Logger) LogSampleFailure(ctx context.Context, index uint32, err error) {
	l.WarnContext(ctx, "sample failed",
		"sample", index,
		"error", err,
	)
}

// LogBlock logs a flushed block.
func (l *Logger) LogBlock(ctx context.Context, index, rows, failed int, elapsed time.Duration) {
	if failed > 0 {
		l.WarnContext(ctx, "block flushed with failures",
			"block", index,
			"rows", rows,
			"failed", failed,
			"elapsed", elapsed,
		)
	} else {
		l.InfoContext(ctx, "block flushed",
			"block", index,
			"rows", rows,
			"elapsed", elapsed,
		)
	}
}

// LogResume logs a resumed run.
func (l *Logger) LogResume(ctx context.Context, dir string, completed int, rawLength int64) {
	l.InfoContext(ctx, "resuming run",
		"dir", dir,
		"completed_blocks", completed,
		"raw_bytes", rawLength,
	)
}

// LogPublish logs a published dataset.
func (l *Logger) LogPublish(ctx context.Context, name string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset published",
			"name", name,
			"bytes", size,
		)
	}
}
