// Package scheduler fans a job list out into concurrent pipelines under
// per-resource-class limits and aggregates their terminal states into a
// run report.
package scheduler

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/backmassage/fetchmaster/internal/job"
	"github.com/backmassage/fetchmaster/internal/logging"
	"github.com/backmassage/fetchmaster/internal/pipeline"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// Limits bounds simultaneous stage execution per resource class. Network
// acquisition and transcoding contend for different resources, so one
// global limit would either starve the network or saturate the CPU.
type Limits struct {
	Acquire   int64
	Transcode int64
}

// Scheduler runs many job pipelines concurrently. The two semaphores are
// the only state shared between pipelines; each run's working directory
// is exclusively its own.
type Scheduler struct {
	Driver   *pipeline.Driver
	Log      *logging.Logger
	WorkRoot string
	KeepWork bool

	acquireSem   *semaphore.Weighted
	transcodeSem *semaphore.Weighted
}

// New returns a Scheduler with the given limits wired into the driver.
func New(driver *pipeline.Driver, log *logging.Logger, workRoot string, keepWork bool, limits Limits) *Scheduler {
	s := &Scheduler{
		Driver:       driver,
		Log:          log,
		WorkRoot:     workRoot,
		KeepWork:     keepWork,
		acquireSem:   semaphore.NewWeighted(max64(limits.Acquire, 1)),
		transcodeSem: semaphore.NewWeighted(max64(limits.Transcode, 1)),
	}
	driver.Limiter = s
	return s
}

// Acquire implements pipeline.Limiter. Local-class stages (tag, place)
// are cheap and run unbounded.
func (s *Scheduler) Acquire(ctx context.Context, class stage.Class) error {
	switch class {
	case stage.ClassNetwork:
		return s.acquireSem.Acquire(ctx, 1)
	case stage.ClassTranscode:
		return s.transcodeSem.Acquire(ctx, 1)
	default:
		return ctx.Err()
	}
}

// Release implements pipeline.Limiter.
func (s *Scheduler) Release(class stage.Class) {
	switch class {
	case stage.ClassNetwork:
		s.acquireSem.Release(1)
	case stage.ClassTranscode:
		s.transcodeSem.Release(1)
	}
}

// Run executes every job to a terminal state and returns the aggregated
// report, ordered by original input index. A single job's failure never
// aborts its siblings; only context cancellation stops the batch early,
// and even then every pipeline reaches a terminal (cancelled) state
// before Run returns.
func (s *Scheduler) Run(ctx context.Context, specs []job.Spec) *Report {
	runs := make([]*pipeline.Run, len(specs))
	for i, spec := range specs {
		runs[i] = pipeline.NewRun(spec, s.WorkRoot)
	}

	var g errgroup.Group
	for _, run := range runs {
		run := run
		g.Go(func() error {
			s.Driver.Execute(ctx, run)
			s.cleanup(run)
			return nil
		})
	}
	// Pipelines record their own failures; the group never errors.
	_ = g.Wait()

	return BuildReport(runs)
}

// cleanup removes the working directory of a fully succeeded run unless
// the user asked to keep it. Failed runs always keep their artifacts for
// diagnosis and resumption.
func (s *Scheduler) cleanup(run *pipeline.Run) {
	if run.Status != pipeline.StatusSucceeded || s.KeepWork {
		return
	}
	if run.WorkDir == "" {
		return
	}
	if err := os.RemoveAll(run.WorkDir); err != nil {
		s.Log.Warn("[%s] cannot clean working directory: %v", run.Job.Label(), err)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
