package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassFatal},
		{"timeout", &TimeoutError{After: time.Second}, ClassRetryable},
		{"wrapped timeout", fmt.Errorf("list: %w", &TimeoutError{After: time.Second}), ClassRetryable},
		{"deadline", context.DeadlineExceeded, ClassRetryable},
		{"transport", &TransportError{Err: errors.New("connection refused")}, ClassRetryable},
		{"remote validation", &RemoteError{Kind: KindValidation, Detail: "bad title"}, ClassFatal},
		{"remote unauthorized", &RemoteError{Kind: KindUnauthorized, Detail: "not owner"}, ClassFatal},
		{"remote not found", &RemoteError{Kind: KindNotFound, Detail: "no such project"}, ClassFatal},
		{"remote conflict", &RemoteError{Kind: KindConflict, Detail: "already accepted"}, ClassFatal},
		{"canceled", context.Canceled, ClassFatal},
		{"unknown", errors.New("something odd"), ClassFatal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDelayForBounds(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		Timeout:     time.Second,
		Jitter:      50 * time.Millisecond,
		DelayCap:    time.Second,
	}
	for i := 0; i < 20; i++ {
		d := DelayFor(i, p)
		if d < 0 {
			t.Fatalf("DelayFor(%d) = %v, want >= 0", i, d)
		}
		if d > p.DelayCap {
			t.Fatalf("DelayFor(%d) = %v, want <= %v", i, d, p.DelayCap)
		}
	}
	// Without jitter the delay doubles until the cap.
	p.Jitter = 0
	if got := DelayFor(0, p); got != 100*time.Millisecond {
		t.Fatalf("DelayFor(0) = %v, want 100ms", got)
	}
	if got := DelayFor(1, p); got != 200*time.Millisecond {
		t.Fatalf("DelayFor(1) = %v, want 200ms", got)
	}
	if got := DelayFor(10, p); got != p.DelayCap {
		t.Fatalf("DelayFor(10) = %v, want cap %v", got, p.DelayCap)
	}
}

func TestMessage(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "unknown error"},
		{"plain error", errors.New("boom"), "boom"},
		{"empty error", errors.New("   "), "unknown error"},
		{"remote detail", &RemoteError{Kind: KindValidation, Detail: "title is required"}, "title is required"},
		{"string panic", "worker blew up", "worker blew up"},
		{"empty string", "  ", "unknown error"},
		{"struct panic", struct{ Code int }{500}, "{500}"},
	}
	for _, tc := range cases {
		if got := Message(tc.in); got != tc.want {
			t.Fatalf("Message(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNamedPoliciesAreSane(t *testing.T) {
	for _, p := range []Policy{FastRead(), CriticalWrite()} {
		if p.MaxAttempts < 1 {
			t.Fatalf("%s MaxAttempts = %d, want >= 1", p.Name, p.MaxAttempts)
		}
		if p.Timeout <= 0 {
			t.Fatalf("%s Timeout = %v, want > 0", p.Name, p.Timeout)
		}
		if p.DelayCap < p.BaseDelay {
			t.Fatalf("%s DelayCap = %v < BaseDelay %v", p.Name, p.DelayCap, p.BaseDelay)
		}
	}
}
