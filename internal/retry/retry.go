// Package retry re-runs failing operations a fixed number of times with a
// constant pause between attempts.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how often and how fast an operation is retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// Attempts is the total number of times an operation may run.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Do runs action until it succeeds or the policy is exhausted. Each failure
// is logged as a warning. The last error is returned unchanged; if ctx is
// cancelled while waiting, ctx.Err() is returned instead.
func Do(ctx context.Context, logger *slog.Logger, policy Policy, name string, action func() error) error {
	maxAttempts := policy.Attempts()
	attempt := 0

	operation := func() error {
		attempt++
		err := action()
		if err != nil {
			logger.Warn("Attempt failed",
				"operation", name,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(maxAttempts-1)),
		ctx,
	)
	return backoff.Retry(operation, b)
}
