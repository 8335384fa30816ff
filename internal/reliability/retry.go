// Package reliability wraps remote calls in per-attempt deadlines,
// failure classification, and capped jittered backoff. It is a per-call,
// in-process shim: no shared state, no retry history across calls.
package reliability

import (
	"context"
	"log/slog"
	"time"
)

// AttemptFunc is one remote-call attempt. It must honor ctx cancellation
// where the underlying transport allows it; where it cannot, the
// orchestrator abandons the attempt and ignores its eventual result.
type AttemptFunc[T any] func(ctx context.Context) (T, error)

// Do runs fn under p: attempts are strictly sequential, each raced against
// p.Timeout; failures are classified once and fatal ones return
// immediately. When the budget is spent the last retryable cause comes
// back wrapped in *ExhaustedError.
//
// Non-idempotent writes whose acknowledgment times out will be retried;
// callers must make such writes idempotent (the stores here upsert by
// natural key for exactly this reason).
func Do[T any](ctx context.Context, p Policy, fn AttemptFunc[T]) (T, error) {
	p = p.withDefaults()
	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		v, err := runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if Classify(err) == ClassFatal {
			if p.OnGiveUp != nil {
				p.OnGiveUp(err)
			}
			return zero, err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := DelayFor(attempt, p)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			if p.OnGiveUp != nil {
				p.OnGiveUp(err)
			}
			return zero, err
		}
	}

	exhausted := &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
	if p.OnGiveUp != nil {
		p.OnGiveUp(exhausted)
	}
	return zero, exhausted
}

// ReadOr is the read-path degradation rule in one place: run fn under p
// and, if it still fails after retries, log and return fallback instead of
// propagating. Callers must treat the fallback as "nothing to show", never
// as confirmed absence of data. Writes never go through here.
func ReadOr[T any](ctx context.Context, p Policy, log *slog.Logger, op string, fallback T, fn AttemptFunc[T]) T {
	v, err := Do(ctx, p, fn)
	if err == nil {
		return v
	}
	if log != nil {
		log.Warn("read degraded to fallback", "op", op, "policy", p.Name, "err", err)
	}
	return fallback
}

// runAttempt races one attempt against the per-attempt deadline. The
// result channel is buffered so an abandoned attempt's late settlement is
// discarded with the channel and can never leak into a later attempt.
func runAttempt[T any](ctx context.Context, timeout time.Duration, fn AttemptFunc[T]) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(attemptCtx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			// Parent cancellation, not our deadline.
			return zero, err
		}
		return zero, &TimeoutError{After: timeout}
	}
}

// sleep waits d without blocking other goroutines; cancellation wins.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
