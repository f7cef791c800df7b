package etl

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes an exponential backoff schedule. MaxAttempts counts
// every call including the first; zero means retry until the context ends.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
	MaxAttempts     int
}

// DefaultSourceRetry retries source reads forever: nothing has been
// committed yet when a query fails to open.
func DefaultSourceRetry() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		Jitter:          0.5,
	}
}

func DefaultSinkRetry() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		Jitter:          0.5,
		MaxAttempts:     10,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	var bo backoff.BackOff = b
	if p.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(bo, ctx)
}
