package reliability

import (
	"math"
	"math/rand"
	"time"
)

// growthFactor is the backoff multiplier shared by every policy. The
// per-call-site 1.5/2.0 tuning this replaces carried no documented intent.
const growthFactor = 2.0

// Policy controls one orchestrated call: attempt budget, per-attempt
// deadline, and backoff shape. Immutable once a call begins.
type Policy struct {
	Name        string
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
	Jitter      time.Duration
	DelayCap    time.Duration

	// OnRetry fires before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
	// OnGiveUp fires when the final failure leaves the orchestrator,
	// whether fatal or exhausted.
	OnGiveUp func(err error)
}

// FastRead suits display reads: short deadline, three attempts, callers
// degrade to an empty default if it still fails.
func FastRead() Policy {
	return Policy{
		Name:        "fast_read",
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Timeout:     time.Second,
		Jitter:      50 * time.Millisecond,
		DelayCap:    time.Second,
	}
}

// CriticalWrite suits mutations: a longer deadline, one retry, and the
// failure always propagates to the caller.
func CriticalWrite() Policy {
	return Policy{
		Name:        "critical_write",
		MaxAttempts: 2,
		BaseDelay:   250 * time.Millisecond,
		Timeout:     3 * time.Second,
		Jitter:      100 * time.Millisecond,
		DelayCap:    2 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Timeout <= 0 {
		p.Timeout = time.Second
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.DelayCap < p.BaseDelay {
		p.DelayCap = p.BaseDelay
	}
	return p
}

// DelayFor computes the backoff before retry number attempt (zero-based):
// capped exponential growth plus uniform jitter. Always in [0, DelayCap].
func DelayFor(attempt int, p Policy) time.Duration {
	p = p.withDefaults()
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(growthFactor, float64(attempt))
	if p.Jitter > 0 {
		d += rand.Float64() * float64(p.Jitter)
	}
	if d > float64(p.DelayCap) {
		d = float64(p.DelayCap)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
