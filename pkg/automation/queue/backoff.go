package queue

import (
	"math"
	"time"
)

// BackoffPolicy computes the exponential delay between execution retries.
//
// The delay for attempt k (1-based) is min(BaseDelay × Factor^(k−1),
// MaxDelay). Once an item's attempts reach MaxAttempts it is discarded and
// the permanent-failure signal is emitted exactly once.
type BackoffPolicy struct {
	// MaxAttempts is the total number of execution attempts before an item
	// is discarded.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay after the first failure.
	// Default: 1s
	BaseDelay time.Duration

	// Factor is the exponential multiplier between attempts.
	// Default: 2.0
	Factor float64

	// MaxDelay caps the computed delay.
	// Default: 5m
	MaxDelay time.Duration
}

// DefaultBackoffPolicy returns the default retry policy.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Factor:      2.0,
		MaxDelay:    5 * time.Minute,
	}
}

// Delay returns the backoff delay after the given 1-based attempt number.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	max := p.MaxDelay
	if max <= 0 {
		max = 5 * time.Minute
	}

	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	if d > max || d < 0 {
		// Negative means the float math overflowed time.Duration.
		d = max
	}
	return d
}

// Exhausted reports whether an item with the given attempt count has used up
// its retries.
func (p BackoffPolicy) Exhausted(attempts int) bool {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return attempts >= maxAttempts
}
