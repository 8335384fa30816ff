package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		Name:        "test",
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Timeout:     time.Second,
		Jitter:      time.Millisecond,
		DelayCap:    10 * time.Millisecond,
	}
}

func TestDoRetryableExhaustsBudget(t *testing.T) {
	calls := 0
	transport := &TransportError{Op: "list", Err: errors.New("connection refused")}

	_, err := Do(context.Background(), testPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, transport
	})
	if err == nil {
		t.Fatalf("Do() error = nil, want exhausted")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("exhausted.Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, transport) {
		t.Fatalf("exhausted error does not wrap last cause: %v", err)
	}
}

func TestDoFatalStopsImmediately(t *testing.T) {
	calls := 0
	waits := 0
	p := testPolicy()
	p.OnRetry = func(int, time.Duration, error) { waits++ }

	remote := &RemoteError{Kind: KindValidation, Op: "create", Detail: "title is required"}
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, remote
	})
	if !errors.Is(err, remote) {
		t.Fatalf("Do() error = %v, want %v", err, remote)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if waits != 0 {
		t.Fatalf("backoff waits = %d, want 0", waits)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Fatalf("fatal error wrapped as exhausted: %v", err)
	}
}

func TestDoTransientThenSuccess(t *testing.T) {
	calls := 0
	var delays []time.Duration
	p := Policy{
		Name:        "scenario",
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Timeout:     time.Second,
		Jitter:      time.Millisecond,
		DelayCap:    time.Second,
		OnRetry: func(_ int, delay time.Duration, _ error) {
			delays = append(delays, delay)
		},
	}

	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		if calls <= 2 {
			return 0, &TransportError{Op: "fetch", Err: errors.New("network unreachable")}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if v != 42 {
		t.Fatalf("Do() = %d, want 42", v)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("backoff waits = %d, want 2", len(delays))
	}
	for i, d := range delays {
		if d < 0 || d > p.DelayCap {
			t.Fatalf("delay[%d] = %v, want within [0, %v]", i, d, p.DelayCap)
		}
	}
}

func TestDoTimesOutHangingAttempt(t *testing.T) {
	p := Policy{
		Name:        "hang",
		MaxAttempts: 2,
		Timeout:     20 * time.Millisecond,
		DelayCap:    time.Millisecond,
	}
	calls := 0

	start := time.Now()
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		<-make(chan struct{}) // never settles
		return 0, nil
	})
	elapsed := time.Since(start)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %v, want *ExhaustedError", err)
	}
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("exhausted cause = %v, want *TimeoutError", exhausted.Err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("Do() took %v, want bounded by attempt deadlines", elapsed)
	}
}

func TestDoAbandonedResultDoesNotLeak(t *testing.T) {
	p := Policy{
		Name:        "abandon",
		MaxAttempts: 2,
		Timeout:     10 * time.Millisecond,
		DelayCap:    time.Millisecond,
	}
	calls := 0

	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			// Ignore cancellation and settle late with a stale value.
			time.Sleep(50 * time.Millisecond)
			return -1, nil
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if v != 42 {
		t.Fatalf("Do() = %d, want 42 (stale attempt result leaked)", v)
	}
}

func TestDoParentCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, testPolicy(), func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls > 1 {
		t.Fatalf("calls = %d, want at most 1 after cancellation", calls)
	}
}

func TestDoSynchronousFailureClassifiedNotTimedOut(t *testing.T) {
	calls := 0
	remote := &RemoteError{Kind: KindConflict, Op: "accept", Detail: "bid already accepted"}

	_, err := Do(context.Background(), testPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, remote
	})
	if !errors.Is(err, remote) {
		t.Fatalf("Do() error = %v, want the synchronous failure itself", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestReadOrDegradesToFallback(t *testing.T) {
	got := ReadOr(context.Background(), testPolicy(), nil, "list_projects", []string{},
		func(ctx context.Context) ([]string, error) {
			return nil, &TransportError{Err: errors.New("connection reset")}
		})
	if got == nil || len(got) != 0 {
		t.Fatalf("ReadOr() = %v, want empty fallback", got)
	}

	want := []string{"a", "b"}
	got = ReadOr(context.Background(), testPolicy(), nil, "list_projects", nil,
		func(ctx context.Context) ([]string, error) {
			return want, nil
		})
	if len(got) != 2 {
		t.Fatalf("ReadOr() = %v, want %v", got, want)
	}
}

func TestDoOnGiveUpFires(t *testing.T) {
	var gaveUp []error
	p := testPolicy()
	p.OnGiveUp = func(err error) { gaveUp = append(gaveUp, err) }

	_, _ = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, &TransportError{Err: errors.New("refused")}
	})
	if len(gaveUp) != 1 {
		t.Fatalf("OnGiveUp fired %d times, want 1", len(gaveUp))
	}
	var exhausted *ExhaustedError
	if !errors.As(gaveUp[0], &exhausted) {
		t.Fatalf("OnGiveUp error = %v, want *ExhaustedError", gaveUp[0])
	}
}
