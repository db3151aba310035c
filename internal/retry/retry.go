// Package retry applies bounded exponential backoff to fallible I/O.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default configuration values.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 1 * time.Second
	DefaultMaxInterval     = 10 * time.Second
	DefaultMultiplier      = 2.0
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts     int           // total attempts including the first; <= 1 disables retry
	InitialInterval time.Duration // wait before the second attempt
	MaxInterval     time.Duration // cap on the wait between attempts
	Multiplier      float64       // growth factor per attempt

	// Notify is called before each wait with the error that triggered it. Optional.
	Notify func(err error, wait time.Duration)
}

// DefaultFetchPolicy is used for page fetches: a few attempts, seconds apart.
func DefaultFetchPolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		Multiplier:      DefaultMultiplier,
	}
}

// DefaultStorePolicy is used for store writes: quicker attempts, since a store blip
// is usually short and the day is re-planned on the next run anyway.
func DefaultStorePolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      DefaultMultiplier,
	}
}

// NoRetry runs the operation exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// Permanent marks err as non-retryable. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, the attempt budget is spent,
// or ctx is done. The last operation error is returned; ctx.Err() when cancelled while
// waiting.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := backoff.WithContext(p.backOff(), ctx)
	operation := func() error {
		return op(ctx)
	}

	if p.Notify != nil {
		return backoff.RetryNotify(operation, b, p.Notify)
	}
	return backoff.Retry(operation, b)
}

func (p Policy) backOff() backoff.BackOff {
	if p.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		eb.Multiplier = p.Multiplier
	}
	// Attempts, not elapsed time, bound the loop.
	eb.MaxElapsedTime = 0
	eb.Reset()

	return backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1))
}
