package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/fetchmaster/internal/pipeline"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// JobResult is the terminal state of one job, condensed for reporting.
type JobResult struct {
	Index       int
	Label       string
	Kind        string
	Status      pipeline.Status
	FailedStage string
	Category    stage.Category
	Err         error
	Outputs     []string
	Elapsed     time.Duration
}

// Report aggregates the batch outcome: exactly one entry per input job,
// in input order, plus summary counts.
type Report struct {
	RunID     string
	Jobs      []JobResult
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// BuildReport condenses terminal runs into a report ordered by input
// index. A run whose stages were all reused from a prior run counts as
// skipped; anything else that reached StatusSucceeded counts as
// succeeded.
func BuildReport(runs []*pipeline.Run) *Report {
	rep := &Report{RunID: uuid.NewString()}
	for _, run := range runs {
		jr := JobResult{
			Index:   run.Job.Index,
			Label:   run.Job.Label(),
			Kind:    string(run.Job.Kind),
			Status:  run.Status,
			Outputs: run.FinalPaths,
			Elapsed: run.Elapsed,
		}
		if run.Status == pipeline.StatusFailed {
			jr.FailedStage = run.FailedID
			jr.Category = run.Category
			if st := run.StageByID(run.FailedID); st != nil {
				jr.Err = st.Err
			}
			rep.Failed++
		} else if allSkipped(run) {
			jr.Status = pipeline.StatusSkipped
			rep.Skipped++
		} else {
			rep.Succeeded++
		}
		if run.Elapsed > rep.Elapsed {
			rep.Elapsed = run.Elapsed
		}
		rep.Jobs = append(rep.Jobs, jr)
	}
	return rep
}

// AllSucceeded reports whether every job ended succeeded or skipped.
func (r *Report) AllSucceeded() bool { return r.Failed == 0 }

// ExitCode maps the batch outcome to a process exit code.
func (r *Report) ExitCode() int {
	if r.AllSucceeded() {
		return 0
	}
	return 1
}

func allSkipped(run *pipeline.Run) bool {
	for _, st := range run.Stages {
		if st.Status != pipeline.StatusSkipped {
			return false
		}
	}
	return len(run.Stages) > 0
}
