// Package scenario sequences benchmark scenarios: untimed setup, timed
// phases issuing one backend call per sample, and unconditional teardown.
package scenario

import (
	"context"
	"fmt"
	"io"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/drivers"
)

// State is what a scenario accumulates between its steps. It lives for one
// run of one scenario.
type State struct {
	// Samples is the number of timed operations per phase.
	Samples int
	Nodes   []drivers.Handle
	Edges   []drivers.Handle
}

// Env is what untimed steps get to work with.
type Env struct {
	Driver drivers.Driver
	// Progress receives setup progress bars, nil disables them.
	Progress io.Writer
}

// Step is an untimed scenario step.
type Step func(ctx context.Context, env Env, st *State) error

// Call is one prepared backend call, the only thing a timed sample covers.
type Call func() error

// Op prepares the i-th operation of a timed phase. Statements and parameters
// are built before the clock starts, the returned Call must issue exactly one
// backend call.
type Op func(ctx context.Context, d drivers.Driver, st *State, i int) Call

// Phase is one timed series of operations. Name doubles as the artifact
// name.
type Phase struct {
	Name string
	Op   Op
}

// Scenario is a named benchmark.
type Scenario struct {
	Name        string
	Description string
	// Setup builds the entity pools the phases address.
	Setup Step
	// Prepare runs after Setup, e.g. to create an index.
	Prepare Step
	Phases  []Phase
	// Cleanup undoes what ClearAll does not, e.g. drops an index. It runs
	// before ClearAll even when the scenario failed.
	Cleanup Step
}

// PhaseError reports the operation a scenario failed on. Index is -1 for
// failures outside timed phases.
type PhaseError struct {
	Scenario string
	Phase    string
	Index    int
	Err      error
}

func (e *PhaseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("scenario %s, %s: %v", e.Scenario, e.Phase, e.Err)
	}
	return fmt.Sprintf("scenario %s, phase %s, operation %d: %v", e.Scenario, e.Phase, e.Index, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Cause keeps github.com/pkg/errors.Cause walking through PhaseError.
func (e *PhaseError) Cause() error {
	return e.Err
}
