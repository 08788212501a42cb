// Package retry provides a bounded exponential-backoff retry combinator.
//
// Two policies share the same backoff shape: the HTTP layer retries only
// transient-marked errors, while on-demand user provisioning retries every
// error (there is no side-effect-free probe for user creation).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for Policy fields left at their zero value.
const (
	DefaultAttempts    = 3
	DefaultMinInterval = 1 * time.Second
	DefaultMaxInterval = 4 * time.Second
	DefaultMultiplier  = 2.0
)

// Policy controls retry behavior for Do.
type Policy struct {
	// Attempts is the total number of attempts, including the first.
	Attempts int

	// MinInterval is the initial backoff interval (floor).
	MinInterval time.Duration

	// MaxInterval caps the backoff interval (ceiling).
	MaxInterval time.Duration

	// Multiplier is the backoff growth factor between attempts.
	Multiplier float64

	// RetryIf decides whether an error is retriable. Nil retries everything.
	RetryIf func(error) bool
}

// DefaultPolicy returns the engine-side policy: retry everything,
// 3 attempts, 1s floor, 4s ceiling.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    DefaultAttempts,
		MinInterval: DefaultMinInterval,
		MaxInterval: DefaultMaxInterval,
		Multiplier:  DefaultMultiplier,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.MinInterval <= 0 {
		p.MinInterval = DefaultMinInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultMaxInterval
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.MinInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.Attempts-1)), ctx)
}

// Do runs op, retrying per the policy. The last error is returned once
// attempts are exhausted or the predicate rejects the error.
func Do(ctx context.Context, p Policy, op func() error) error {
	p = p.withDefaults()
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.RetryIf != nil && !p.RetryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx))
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
