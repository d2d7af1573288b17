// Package oracle drives the external radiative-properties simulator.
//
// An Invoker turns one scenario into one result row. The executable-backed
// implementation, Process, renders a namelist input file into a Workspace,
// runs the simulator there as a subprocess and parses the report it leaves
// behind.
//
// # Failure classification
//
// A report whose first line starts with ERROR yields a *SimulationError and a
// run exceeding its timeout yields a *TimeoutError. Both only invalidate the
// current sample (see IsRecoverable). A missing executable (ErrExecutable) or
// a missing or malformed report (*OutputError) is fatal.
package oracle

import (
	"context"

	"github.com/hupe1980/radbase/scenario"
)

const tracerName = "github.com/hupe1980/radbase/oracle"

// Invoker evaluates a scenario.
//
// Implementations must only touch files inside ws, so that invocations in
// distinct workspaces can run concurrently.
type Invoker interface {
	Invoke(ctx context.Context, ws Workspace, sc *scenario.Scenario) (scenario.Row, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, ws Workspace, sc *scenario.Scenario) (scenario.Row, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, ws Workspace, sc *scenario.Scenario) (scenario.Row, error) {
	return f(ctx, ws, sc)
}
