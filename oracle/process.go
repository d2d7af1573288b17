package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/hupe1980/radbase/scenario"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single simulator run.
const DefaultTimeout = 5 * time.Minute

// Options configures a Process.
type Options struct {
	// Args are passed to the executable. The simulator reads its input from
	// the fixed file name in its working directory, so none are required.
	Args []string

	// Env is appended to the inherited environment.
	Env []string

	// Timeout bounds one run. Zero disables the limit.
	Timeout time.Duration

	// WaitDelay bounds how long Wait blocks on output pipes after the
	// process was killed.
	WaitDelay time.Duration

	// Title is written to the HEADER record of the input file.
	Title string

	// Logger receives per-run debug records. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions contains the default Process options.
var DefaultOptions = Options{
	Timeout:   DefaultTimeout,
	WaitDelay: time.Second,
	Title:     DefaultTitle,
}

// Process is an Invoker backed by the simulator executable.
type Process struct {
	path string
	opts Options
}

// NewProcess resolves the executable and returns an invoker for it.
//
// The error wraps ErrExecutable if path cannot be resolved to an executable
// file.
func NewProcess(path string, optFns ...func(o *Options)) (*Process, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Timeout < 0 {
		return nil, fmt.Errorf("oracle: negative timeout %s", opts.Timeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExecutable, path, err)
	}

	return &Process{path: resolved, opts: opts}, nil
}

// Path returns the resolved executable path.
func (p *Process) Path() string { return p.path }

// Invoke implements Invoker.
func (p *Process) Invoke(ctx context.Context, ws Workspace, sc *scenario.Scenario) (row scenario.Row, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "oracle.invoke",
		trace.WithAttributes(
			attribute.String("oracle.path", p.path),
			attribute.String("oracle.workspace", ws.Dir),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// A report left over from a previous sample must never be parsed as ours.
	if err := os.Remove(ws.OutputPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return row, fmt.Errorf("oracle: remove stale output: %w", err)
	}

	if err := writeInputFile(ws.InputPath(), p.opts.Title, sc); err != nil {
		return row, fmt.Errorf("oracle: write input: %w", err)
	}

	if err := p.run(ctx, ws); err != nil {
		return row, err
	}

	out, err := readOutput(ws.OutputPath())
	if err != nil {
		return row, err
	}

	row = sc.Row()
	copy(row[scenario.ColOutputs:], out[:])

	return row, nil
}

func (p *Process) run(ctx context.Context, ws Workspace) error {
	runCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.path, p.opts.Args...) //nolint:gosec // G204: executable is configured by the operator
	cmd.Dir = ws.Dir
	cmd.WaitDelay = p.opts.WaitDelay
	if len(p.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), p.opts.Env...)
	}

	var console bytes.Buffer
	cmd.Stdout = &console
	cmd.Stderr = &console

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err := p.runError(ctx, runCtx, err); err != nil {
		return err
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The simulator reports failures through its output file; the exit
		// status alone does not decide the outcome.
		p.opts.Logger.Debug("oracle exited with non-zero status",
			slog.String("workspace", ws.Dir),
			slog.Int("exit_code", exitErr.ExitCode()),
			slog.String("console", tail(console.Bytes(), 512)),
		)
	}

	p.opts.Logger.Debug("oracle finished",
		slog.String("workspace", ws.Dir),
		slog.Duration("elapsed", elapsed),
	)

	return nil
}

// runError classifies the error of a finished run. Only a run that failed
// can have timed out; a deadline expiring after a clean exit is ignored.
func (p *Process) runError(ctx, runCtx context.Context, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case runCtx.Err() != nil:
		return &TimeoutError{Timeout: p.opts.Timeout, cause: runCtx.Err()}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s: %v", ErrExecutable, p.path, err)
	}
	return nil
}

// tail returns at most the last n bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
