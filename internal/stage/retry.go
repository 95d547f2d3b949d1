package stage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry policy defaults. Both are configuration surface (flags/YAML);
// these values apply when the user sets nothing.
const (
	DefaultMaxAttempts = 3
	DefaultCallTimeout = 20 * time.Minute
	defaultBackoff     = 5 * time.Second
)

// RetryPolicy bounds automatic retries for one stage call. Only transient
// failures (network, rate limit, per-call timeout) are retried; tool and
// placement errors fail immediately.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts including the first.
	CallTimeout time.Duration // Per-attempt deadline; 0 disables it.
	Backoff     time.Duration // Pause between attempts.
}

// DefaultRetryPolicy returns the documented defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		CallTimeout: DefaultCallTimeout,
		Backoff:     defaultBackoff,
	}
}

// Run executes one stage under the policy. A per-attempt deadline that
// expires is converted to a TransientError so it counts against the
// attempt budget; cancellation of the parent context aborts immediately.
// Returns the result of the first successful attempt, the attempt count,
// and the last error when all attempts fail.
func (p RetryPolicy) Run(ctx context.Context, e Executor, req Request) (Result, int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := p.attempt(ctx, e, req)
		if err == nil {
			return res, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return Result{}, attempt, ctx.Err()
		}
		if !IsTransient(err) {
			return Result{}, attempt, err
		}
		if attempt == attempts {
			break
		}
		if p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return Result{}, attempt, ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
	}
	return Result{}, attempts, fmt.Errorf("%d attempts: %w", attempts, lastErr)
}

func (p RetryPolicy) attempt(ctx context.Context, e Executor, req Request) (Result, error) {
	callCtx := ctx
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}

	res, err := e.Execute(callCtx, req)
	if err == nil {
		return res, nil
	}
	// A deadline hit on the call context (but not the parent) is a
	// timeout of the external collaborator: transient by definition.
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return Result{}, &TransientError{Err: err}
	}
	return Result{}, err
}
