package stage

import (
	"context"
	"fmt"

	"github.com/backmassage/fetchmaster/internal/job"
)

// Request carries everything an executor may need for one stage call:
// the job being processed, the stage being run, the job's exclusive
// working directory, and the artifact paths produced by the stage's
// predecessors.
type Request struct {
	Job     job.Spec
	Stage   Stage
	WorkDir string
	Inputs  []string
}

// Result is the outcome of a successful stage execution.
type Result struct {
	// Artifacts are the output file paths produced in the working
	// directory (or, for Place, the final destination paths).
	Artifacts []string
	// Diagnostics is an optional tail of tool output kept for logging.
	Diagnostics string
}

// Executor runs one stage by invoking exactly one external collaborator.
// Implementations must confine side effects to req.WorkDir (Place being
// the one exception: it writes the final destination). Errors should be
// one of the taxonomy types in this package so the retry policy and the
// run report can classify them.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface. Used by test
// doubles that simulate collaborator outcomes without real processes.
type ExecutorFunc func(ctx context.Context, req Request) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Registry maps stage names to their executors. One concrete executor is
// registered per external tool; tests register ExecutorFunc doubles.
type Registry struct {
	executors map[Name]Executor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[Name]Executor)}
}

// Register binds an executor to a stage name, replacing any previous one.
func (r *Registry) Register(name Name, e Executor) {
	r.executors[name] = e
}

// Get returns the executor for a stage name.
func (r *Registry) Get(name Name) (Executor, error) {
	e, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("no executor registered for stage %q", name)
	}
	return e, nil
}
