package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/backmassage/fetchmaster/internal/job"
	"github.com/backmassage/fetchmaster/internal/logging"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// Limiter bounds concurrent stage execution per resource class. The
// scheduler provides the implementation; a nil Limiter means unbounded
// (used by tests and dry runs).
type Limiter interface {
	Acquire(ctx context.Context, class stage.Class) error
	Release(class stage.Class)
}

// Driver executes runs: one instance is shared by all pipelines in a
// batch and holds the executor registry, retry policy, and resumption
// settings. Driver itself is stateless across jobs; all per-job state
// lives in the Run.
type Driver struct {
	Registry *stage.Registry
	Limiter  Limiter
	Log      *logging.Logger
	Retry    stage.RetryPolicy
	Resume   bool
	Verbose  bool

	// ExpectedOutputs returns the final destination paths a fully
	// succeeded prior run would have produced for a job. When resumption
	// is enabled and all of them exist non-empty, every stage is skipped
	// without touching the working directory.
	ExpectedOutputs func(spec job.Spec) []string
}

// Execute drives one run to a terminal state. It never returns an error:
// failures are recorded in the run itself so one job's failure cannot
// disturb its siblings.
func (d *Driver) Execute(ctx context.Context, run *Run) {
	run.Started = time.Now()
	run.Status = StatusRunning
	defer func() { run.Elapsed = time.Since(run.Started) }()

	if d.Resume && d.skipCompletedRun(run) {
		return
	}

	if err := os.MkdirAll(run.WorkDir, 0o755); err != nil {
		d.Log.Error("[%s] cannot create working directory: %v", run.Job.Label(), err)
		run.Stages[0].transition(StatusFailed)
		run.Stages[0].Err = err
		run.Stages[0].Category = stage.CategoryTool
		d.abandon(run, run.Stages[0])
		return
	}

	for _, st := range run.Stages {
		if st.Status.Terminal() {
			continue
		}
		if ctx.Err() != nil {
			d.cancelRemaining(run, st)
			return
		}
		if !run.depsCompleted(st) {
			st.transition(StatusSkippedDeps)
			continue
		}

		inputs := run.depInputs(st)

		if d.Resume {
			if artifacts, ok := checkMarker(run.WorkDir, run.Job, st.Stage, inputs); ok {
				st.transition(StatusSkipped)
				st.Artifacts = artifacts
				d.Log.Debug(d.Verbose, "[%s] %s: reusing prior result", run.Job.Label(), st.Stage.ID)
				d.collectFinal(run, st)
				continue
			}
		}

		d.executeStage(ctx, run, st, inputs)
		if st.Status == StatusFailed && st.Category == stage.CategoryCancelled {
			d.cancelRemaining(run, nil)
			run.FailedID = st.Stage.ID
			return
		}
	}

	d.finalize(run)
}

// executeStage runs one stage under the concurrency limiter and retry
// policy, and records the outcome.
func (d *Driver) executeStage(ctx context.Context, run *Run, st *StageState, inputs []string) {
	exec, err := d.Registry.Get(st.Stage.Name)
	if err != nil {
		st.transition(StatusRunning)
		d.fail(run, st, err)
		return
	}

	st.transition(StatusRunning)
	d.Log.Stage("[%s] %s", run.Job.Label(), st.Stage.ID)

	if d.Limiter != nil {
		if err := d.Limiter.Acquire(ctx, st.Stage.Class); err != nil {
			d.fail(run, st, err)
			return
		}
		defer d.Limiter.Release(st.Stage.Class)
	}

	req := stage.Request{
		Job:     run.Job,
		Stage:   st.Stage,
		WorkDir: run.WorkDir,
		Inputs:  inputs,
	}

	start := time.Now()
	res, attempts, err := d.Retry.Run(ctx, exec, req)
	st.Attempts = attempts
	st.Elapsed = time.Since(start)

	if err != nil {
		d.fail(run, st, err)
		return
	}

	st.transition(StatusSucceeded)
	st.Artifacts = res.Artifacts
	d.collectFinal(run, st)

	if err := writeMarker(run.WorkDir, run.Job, st.Stage, inputs, res.Artifacts); err != nil {
		// A missing marker only costs a redo on the next run.
		d.Log.Debug(d.Verbose, "[%s] %s: cannot write completion marker: %v",
			run.Job.Label(), st.Stage.ID, err)
	}
}

// fail records a stage failure. Artifacts of already-succeeded stages are
// left on disk for inspection and resumption.
func (d *Driver) fail(run *Run, st *StageState, err error) {
	st.transition(StatusFailed)
	st.Err = err
	st.Category = stage.Categorize(err)
	d.Log.Error("[%s] %s failed (%s): %v", run.Job.Label(), st.Stage.ID, st.Category, err)
}

// cancelRemaining marks every non-terminal stage as skipped and the run
// as failed with category cancelled. current, when non-nil, is the stage
// whose turn it was when cancellation was observed.
func (d *Driver) cancelRemaining(run *Run, current *StageState) {
	for _, st := range run.Stages {
		if !st.Status.Terminal() {
			st.transition(StatusSkippedDeps)
			if st == current {
				st.Category = stage.CategoryCancelled
			}
		}
	}
	run.Status = StatusFailed
	run.Category = stage.CategoryCancelled
	if current != nil {
		run.FailedID = current.Stage.ID
	}
	d.Log.Warn("[%s] cancelled", run.Job.Label())
}

// abandon finalizes a run that failed before its stage loop could start.
func (d *Driver) abandon(run *Run, failed *StageState) {
	for _, st := range run.Stages {
		if !st.Status.Terminal() {
			st.transition(StatusSkippedDeps)
		}
	}
	run.Status = StatusFailed
	run.Category = failed.Category
	run.FailedID = failed.Stage.ID
}

// finalize derives the run's terminal status from its stages.
func (d *Driver) finalize(run *Run) {
	for _, st := range run.Stages {
		if st.Status == StatusFailed {
			run.Status = StatusFailed
			run.Category = st.Category
			run.FailedID = st.Stage.ID
			return
		}
	}
	run.Status = StatusSucceeded
}

// collectFinal appends Place stage outputs to the run's final paths.
func (d *Driver) collectFinal(run *Run, st *StageState) {
	if st.Stage.Name == stage.Place {
		run.FinalPaths = append(run.FinalPaths, st.Artifacts...)
	}
}

// skipCompletedRun checks whether every expected final output of the job
// already exists non-empty. If so, all stages are marked skipped and the
// run succeeds without any work; this is the cheap path for re-running a
// list that already completed.
func (d *Driver) skipCompletedRun(run *Run) bool {
	if d.ExpectedOutputs == nil {
		return false
	}
	expected := d.ExpectedOutputs(run.Job)
	if len(expected) == 0 {
		return false
	}
	for _, path := range expected {
		fi, err := os.Stat(path)
		if err != nil || fi.Size() == 0 {
			return false
		}
	}
	for _, st := range run.Stages {
		st.transition(StatusSkipped)
	}
	run.Status = StatusSucceeded
	run.FinalPaths = expected
	d.Log.Info("[%s] outputs already present, skipping", run.Job.Label())
	return true
}
