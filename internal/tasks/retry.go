package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/banksync/internal/logger"
)

// ErrTimeout marks an operation that exceeded its deadline in WithTimeout.
var ErrTimeout = errors.New("operation timed out")

// WithTimeout races op against the given duration. The underlying operation
// is not cancelled beyond the context deadline: it may keep running in the
// background after the race is lost, and only its result is discarded.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		value, err := op(ctx)
		ch <- result{value: value, err: err}
	}()

	select {
	case res := <-ch:
		// The operation may observe the deadline itself and return before
		// the select does; report the same ErrTimeout either way.
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			var zero T
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return zero, ctx.Err()
	}
}

// RetryWithBackoff runs op up to attempts times, sleeping base, 2*base,
// 4*base, ... between tries. Errors for which permanent returns true
// short-circuit the retry loop immediately.
func RetryWithBackoff[T any](ctx context.Context, attempts int, base time.Duration, permanent func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	backoff := base
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if permanent != nil && permanent(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		backoff *= 2
	}

	return zero, fmt.Errorf("retries exhausted after %d attempts: %w", attempts, lastErr)
}

// ItemError pairs a failed candidate with its error.
type ItemError[T any] struct {
	Item T
	Err  error
}

// BatchResult aggregates a sweep over independent candidates.
type BatchResult[T any] struct {
	Succeeded int
	Skipped   int
	Failed    []ItemError[T]
}

// Total returns the number of candidates processed.
func (r BatchResult[T]) Total() int {
	return r.Succeeded + r.Skipped + len(r.Failed)
}

// ErrSkip marks a candidate that was skipped intentionally rather than
// failed; CollectEach counts it separately and does not log it as an error.
var ErrSkip = errors.New("candidate skipped")

// CollectEach runs op for every item sequentially, isolating failures: an
// error in one item is recorded and logged but does not abort the siblings.
func CollectEach[T any](ctx context.Context, items []T, describe func(T) string, op func(ctx context.Context, item T) error) BatchResult[T] {
	log := logger.FromContext(ctx)

	var result BatchResult[T]
	for _, item := range items {
		err := op(ctx, item)
		switch {
		case err == nil:
			result.Succeeded++
		case errors.Is(err, ErrSkip):
			result.Skipped++
		default:
			result.Failed = append(result.Failed, ItemError[T]{Item: item, Err: err})
			log.Error().
				Err(err).
				Str("item", describe(item)).
				Msg("batch item failed, continuing")
		}
	}
	return result
}
