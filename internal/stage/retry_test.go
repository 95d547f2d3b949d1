package stage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func policy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Backoff: time.Millisecond}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		return Result{Artifacts: []string{"out"}}, nil
	})

	res, attempts, err := policy(3).Run(context.Background(), exec, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1/1", attempts, calls)
	}
	if len(res.Artifacts) != 1 {
		t.Errorf("artifacts = %v", res.Artifacts)
	}
}

func TestRetry_TransientRetriedUntilSuccess(t *testing.T) {
	calls := 0
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		if calls < 3 {
			return Result{}, &TransientError{Err: errors.New("429")}
		}
		return Result{}, nil
	})

	_, attempts, err := policy(3).Run(context.Background(), exec, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3/3", attempts, calls)
	}
}

func TestRetry_TransientExhaustsBudget(t *testing.T) {
	calls := 0
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		return Result{}, &TransientError{Err: errors.New("reset by peer")}
	})

	_, attempts, err := policy(3).Run(context.Background(), exec, Request{})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3/3", attempts, calls)
	}
	if !IsTransient(err) {
		t.Errorf("final error should stay transient for categorization: %v", err)
	}
}

func TestRetry_ToolErrorNotRetried(t *testing.T) {
	calls := 0
	toolErr := &ToolError{Tool: "ffmpeg", Err: errors.New("invalid data")}
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		return Result{}, toolErr
	})

	_, attempts, err := policy(3).Run(context.Background(), exec, Request{})
	if !errors.Is(err, toolErr) {
		t.Fatalf("err = %v, want the tool error", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1/1", attempts, calls)
	}
}

func TestRetry_CancellationAbortsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		cancel()
		return Result{}, &TransientError{Err: errors.New("would retry")}
	})

	_, _, err := policy(3).Run(ctx, exec, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_CallTimeoutCountsAsTransient(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 2, CallTimeout: 10 * time.Millisecond, Backoff: time.Millisecond}
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return Result{}, ctx.Err()
		}
		return Result{}, nil
	})

	_, attempts, err := p.Run(context.Background(), exec, Request{})
	if err != nil {
		t.Fatalf("timeout on first attempt should be retried: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	exec := ExecutorFunc(func(ctx context.Context, req Request) (Result, error) {
		calls++
		return Result{}, nil
	})
	if _, _, err := (RetryPolicy{}).Run(context.Background(), exec, Request{}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
