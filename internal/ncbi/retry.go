package ncbi

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls the exponential backoff applied to retryable errors.
// The delay before attempt i is min(InitialDelay * Multiplier^i, MaxDelay)
// scaled by a uniform factor in [1-Jitter, 1+Jitter].
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryConfig matches NCBI guidance: three attempts, sub-second
// initial delay, capped at a few seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 700 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.25,
	}
}

func (rc RetryConfig) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialDelay
	b.MaxInterval = rc.MaxDelay
	b.Multiplier = rc.Multiplier
	b.RandomizationFactor = rc.Jitter
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// retryOp runs op under the retry policy. Errors wrapped by permanent
// propagate immediately; everything else is retried until the attempt
// budget is exhausted.
func (c *BaseClient) retryOp(ctx context.Context, op func() error) error {
	return backoff.Retry(op, c.Retry.newBackOff(ctx))
}

// permanent marks an error as non-retryable for the retry driver.
func permanent(err error) error {
	return backoff.Permanent(err)
}
