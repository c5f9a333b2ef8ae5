// Package retry provides the bounded retry loops used for completion calls
// and provider file activation polling. Both are the same shape: attempt,
// classify, wait, attempt again, give up after a fixed bound.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Policy configures Do. Zero values are replaced with the defaults below.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter adds a random fraction [0, Jitter) of the delay on top of it.
	Jitter float64
}

const (
	defaultMaxAttempts = 3
	defaultDelay       = 500 * time.Millisecond
	defaultMaxDelay    = 30 * time.Second
	defaultMultiplier  = 2.0
	defaultJitter      = 0.25
)

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaultMultiplier
	}
	if p.Jitter < 0 {
		p.Jitter = defaultJitter
	}
	return p
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops retrying and returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do calls fn up to policy.MaxAttempts times, sleeping an exponentially
// growing delay (with jitter) between attempts. An error wrapped with
// Permanent stops the loop at once; the wrapper is removed before returning.
// Context cancellation during a wait returns ctx.Err.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	policy = policy.normalized()

	var lastErr error
	delay := policy.InitialDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		lastErr = err
		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, withJitter(delay, policy.Jitter)); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}

// ErrPollTimeout is returned by Poll when the predicate never settled within
// the attempt bound.
var ErrPollTimeout = errors.New("poll attempts exhausted")

// Poll calls fn at a fixed interval until it reports done, fails, or the
// attempt bound is hit. It is the predicate-flavored sibling of Do, used for
// provider-side file activation.
func Poll(ctx context.Context, attempts int, interval time.Duration, fn func(ctx context.Context) (done bool, err error)) error {
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	if interval <= 0 {
		interval = defaultDelay
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %d attempts", ErrPollTimeout, attempts)
}

func withJitter(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Float64()*jitter*float64(delay))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
