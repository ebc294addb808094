package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithTimeout_ReturnsResultBeforeDeadline(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("expected 'done', got %q", got)
	}
}

func TestWithTimeout_DeadlineExceeded(t *testing.T) {
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		select {
		case <-time.After(time.Second):
			return "too late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestWithTimeout_NormalizesDeadlineFromOperation(t *testing.T) {
	_, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "", fmt.Errorf("query: %w", context.DeadlineExceeded)
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout when the operation itself hits the deadline, got %v", err)
	}
}

func TestWithTimeout_PropagatesOperationError(t *testing.T) {
	opErr := errors.New("boom")
	_, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, opErr
	})
	if !errors.Is(err, opErr) {
		t.Errorf("expected operation error, got %v", err)
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, nil, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	lastErr := errors.New("still failing")
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, lastErr
	})
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("expected wrapped last error, got %v", err)
	}
}

func TestRetryWithBackoff_PermanentErrorShortCircuits(t *testing.T) {
	permErr := errors.New("not found")
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond,
		func(err error) bool { return errors.Is(err, permErr) },
		func(ctx context.Context) (int, error) {
			calls++
			return 0, permErr
		})
	if calls != 1 {
		t.Errorf("expected a single attempt for a permanent error, got %d", calls)
	}
	if !errors.Is(err, permErr) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestRetryWithBackoff_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryWithBackoff(ctx, 5, 50*time.Millisecond, nil, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation took effect, got %d", calls)
	}
}

func TestCollectEach_IsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var processed []int

	result := CollectEach(context.Background(), items,
		func(n int) string { return fmt.Sprintf("%d", n) },
		func(ctx context.Context, n int) error {
			processed = append(processed, n)
			if n == 3 {
				return errors.New("item 3 broke")
			}
			return nil
		})

	if len(processed) != 5 {
		t.Errorf("expected all 5 items processed despite the failure, got %d", len(processed))
	}
	if result.Succeeded != 4 {
		t.Errorf("expected 4 successes, got %d", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	if result.Failed[0].Item != 3 {
		t.Errorf("expected item 3 in failures, got %d", result.Failed[0].Item)
	}
	if result.Total() != 5 {
		t.Errorf("expected total 5, got %d", result.Total())
	}
}

func TestCollectEach_CountsSkipsSeparately(t *testing.T) {
	items := []string{"a", "b", "c"}
	result := CollectEach(context.Background(), items,
		func(s string) string { return s },
		func(ctx context.Context, s string) error {
			if s == "b" {
				return ErrSkip
			}
			return nil
		})

	if result.Succeeded != 2 || result.Skipped != 1 || len(result.Failed) != 0 {
		t.Errorf("expected 2 succeeded / 1 skipped / 0 failed, got %d/%d/%d",
			result.Succeeded, result.Skipped, len(result.Failed))
	}
}
