// Package pipeline drives one job through its stage sequence: the
// per-stage state machine, dependency gating, retry, resumption from
// completion markers, and the exclusive working directory.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/backmassage/fetchmaster/internal/job"
	"github.com/backmassage/fetchmaster/internal/placer"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// Status is the lifecycle state of one stage (and, for terminal states,
// of the whole run).
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"      // Reused from a prior run.
	StatusSkippedDeps Status = "skipped-deps" // A predecessor failed.
)

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusSkippedDeps:
		return true
	}
	return false
}

// Completed reports whether a stage in state s counts as a satisfied
// dependency for its successors.
func (s Status) Completed() bool {
	return s == StatusSucceeded || s == StatusSkipped
}

// allowedTransitions enforces monotonic forward-only stage progress.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusRunning:     true,
		StatusSkipped:     true,
		StatusSkippedDeps: true,
		StatusFailed:      true, // cancelled before start
	},
	StatusRunning: {
		StatusSucceeded: true,
		StatusFailed:    true,
	},
}

// StageState is the runtime record of one stage within a run.
type StageState struct {
	Stage     stage.Stage
	Status    Status
	Category  stage.Category
	Err       error
	Artifacts []string
	Attempts  int
	Elapsed   time.Duration
}

// transition moves the stage to a new status, enforcing the monotonic
// forward-only rule. A violation is a programming error.
func (s *StageState) transition(to Status) {
	if !allowedTransitions[s.Status][to] {
		panic(fmt.Sprintf("invalid stage transition %s: %s -> %s", s.Stage.ID, s.Status, to))
	}
	s.Status = to
}

// Run is the runtime state of one job traversing its stage sequence. It
// owns its working directory exclusively until it reaches a terminal
// state; no other run ever touches it.
type Run struct {
	Job     job.Spec
	Stages  []*StageState
	WorkDir string

	Status     Status
	Category   stage.Category // Failure category when Status is failed.
	FailedID   string         // ID of the stage that failed.
	FinalPaths []string       // Destinations written by Place stages.
	Started    time.Time
	Elapsed    time.Duration

	byID map[string]*StageState
}

// NewRun builds the run for a job with all stages pending. workRoot is
// the scratch root; the run's working directory is a deterministic
// subdirectory of it so resumption finds prior artifacts after a crash.
func NewRun(spec job.Spec, workRoot string) *Run {
	seq := stage.SequenceFor(spec.Kind)
	r := &Run{
		Job:     spec,
		WorkDir: WorkDirFor(workRoot, spec),
		Status:  StatusPending,
		byID:    make(map[string]*StageState, len(seq)),
	}
	for _, st := range seq {
		ss := &StageState{Stage: st, Status: StatusPending}
		r.Stages = append(r.Stages, ss)
		r.byID[st.ID] = ss
	}
	return r
}

// StageByID returns the state for a stage ID, or nil.
func (r *Run) StageByID(id string) *StageState { return r.byID[id] }

// depsCompleted reports whether every declared predecessor of st has
// completed (succeeded or been skipped via resumption).
func (r *Run) depsCompleted(st *StageState) bool {
	for _, dep := range st.Stage.Deps {
		ds := r.byID[dep]
		if ds == nil || !ds.Status.Completed() {
			return false
		}
	}
	return true
}

// depInputs returns the artifacts of st's predecessors in declared order.
func (r *Run) depInputs(st *StageState) []string {
	var inputs []string
	for _, dep := range st.Stage.Deps {
		if ds := r.byID[dep]; ds != nil {
			inputs = append(inputs, ds.Artifacts...)
		}
	}
	return inputs
}

// WorkDirFor returns the deterministic scratch directory for a job:
// a readable prefix plus a short hash of the source locator and kind, so
// two jobs for the same source but different kinds never share scratch.
func WorkDirFor(workRoot string, spec job.Spec) string {
	h := sha256.Sum256([]byte(spec.SourceLocator + "|" + string(spec.Kind)))
	name := fmt.Sprintf("%s-%s-%s",
		placer.Sanitize(spec.AlbumArtist),
		placer.Sanitize(spec.TrackTitle),
		hex.EncodeToString(h[:4]),
	)
	return filepath.Join(workRoot, name)
}
