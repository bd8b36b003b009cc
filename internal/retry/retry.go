// Package retry provides a bounded exponential-backoff policy for calls to
// external providers.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
)

// Policy retries an operation with exponential backoff and jitter.
// The zero value is not usable; construct with NewPolicy.
type Policy struct {
	maxAttempts int
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewPolicy returns a policy with the given attempt budget.
// maxAttempts includes the first try.
func NewPolicy(maxAttempts int, minDelay, maxDelay time.Duration) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if minDelay <= 0 {
		minDelay = 500 * time.Millisecond
	}
	if maxDelay < minDelay {
		maxDelay = 10 * time.Second
	}
	return &Policy{maxAttempts: maxAttempts, minDelay: minDelay, maxDelay: maxDelay}
}

// Default returns the policy used for provider calls: 3 attempts,
// 500ms..8s backoff.
func Default() *Policy {
	return NewPolicy(3, 500*time.Millisecond, 8*time.Second)
}

// permanent wraps an error that must not be retried.
type permanent struct {
	err error
}

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent marks err as non-retryable. Do waits for no further attempts
// once fn returns a permanent error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Do runs fn until it succeeds, returns a permanent error, exhausts the
// attempt budget, or ctx is done. The returned error is the last one fn
// produced, unwrapped from any permanent marker.
func (p *Policy) Do(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{
		Min:    p.minDelay,
		Max:    p.maxDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
