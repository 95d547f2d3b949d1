package stage

import (
	"context"
	"errors"
	"fmt"
)

// Category classifies a stage failure for the run report and the retry
// policy. Only CategoryTransient failures are retried.
type Category string

const (
	CategoryNone       Category = ""
	CategoryValidation Category = "validation"
	CategoryTransient  Category = "transient"
	CategoryTool       Category = "tool"
	CategoryPlacement  Category = "placement"
	CategoryCancelled  Category = "cancelled"
)

// TransientError wraps a failure worth retrying: network faults, rate
// limiting, and per-call timeouts.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// ToolError wraps an unrecoverable failure reported by an external
// collaborator (bad input, unsupported format, tool crash). Never retried.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string // Tail of the tool's stderr for diagnostics.
}

func (e *ToolError) Error() string { return fmt.Sprintf("%s: %v", e.Tool, e.Err) }
func (e *ToolError) Unwrap() error { return e.Err }

// PlacementError reports a destination collision or filesystem fault
// during final placement.
type PlacementError struct {
	Path string
	Err  error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("place %s: %v", e.Path, e.Err)
}
func (e *PlacementError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Context cancellation
// is never transient, even when wrapped.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransientError
	return errors.As(err, &te)
}

// Categorize maps an error to its failure category. Cancellation wins over
// any wrapper so an aborted run is always reported as cancelled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryNone
	}
	if errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}
	var (
		tre *TransientError
		toe *ToolError
		ple *PlacementError
	)
	switch {
	case errors.As(err, &ple):
		return CategoryPlacement
	case errors.As(err, &tre):
		return CategoryTransient
	case errors.As(err, &toe):
		return CategoryTool
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient
	default:
		return CategoryTool
	}
}
