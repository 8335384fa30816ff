package reliability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Class says whether another attempt at the same call can change the outcome.
type Class int

const (
	// ClassRetryable marks failures that may be transient (timeouts, transport).
	ClassRetryable Class = iota
	// ClassFatal marks failures that will recur on retry (remote rejections,
	// cancellation, anything unrecognized).
	ClassFatal
)

func (c Class) String() string {
	if c == ClassRetryable {
		return "retryable"
	}
	return "fatal"
}

// RemoteKind identifies why the remote store rejected a call.
type RemoteKind string

const (
	KindValidation   RemoteKind = "validation"
	KindUnauthorized RemoteKind = "unauthorized"
	KindNotFound     RemoteKind = "not_found"
	KindConflict     RemoteKind = "conflict"
	KindInternal     RemoteKind = "internal"
)

// TimeoutError is raised when an attempt misses its per-attempt deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("call timed out after %s", e.After)
	}
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// TransportError wraps a failure that happened before the remote store
// processed the call (connection refused, DNS, reset).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport failure: %v", e.Err)
	}
	return fmt.Sprintf("%s transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a rejection reported by the remote store itself. The store
// saw the request and answered; retrying cannot change its mind.
type RemoteError struct {
	Kind   RemoteKind
	Op     string
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("remote %s error: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s remote %s error: %s", e.Op, e.Kind, e.Detail)
}

// ExhaustedError wraps the last retryable failure once the attempt budget is
// spent, so callers can tell "kept failing" apart from "rejected outright".
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Classify decides once, at the boundary where a remote failure is first
// caught, whether the failure is worth another attempt. Errors with no
// distinguishing signal default to fatal: failing fast beats retrying an
// unknown condition.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, context.Canceled) {
		return ClassFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return ClassRetryable
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return ClassRetryable
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return ClassFatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassRetryable
	}
	return ClassFatal
}

// Message extracts operator-facing text from an arbitrary failure value,
// including non-error panic payloads recovered at a call boundary.
func Message(v any) string {
	const fallback = "unknown error"
	switch e := v.(type) {
	case nil:
		return fallback
	case *RemoteError:
		if s := strings.TrimSpace(e.Detail); s != "" {
			return s
		}
		return e.Error()
	case error:
		if s := strings.TrimSpace(e.Error()); s != "" {
			return s
		}
		return fallback
	case string:
		if s := strings.TrimSpace(e); s != "" {
			return s
		}
		return fallback
	default:
		return fmt.Sprintf("%v", v)
	}
}
