// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// FailureFunc is called after every failed attempt
type FailureFunc func(attempt, maxAttempts int, err error)

// Policy retries an operation with linear backoff: the wait after attempt n
// is BaseDelay*n. Linear spacing keeps pressure low on rate-limited hosts.
type Policy struct {
	MaxAttempts int           // Total attempts including the first
	BaseDelay   time.Duration // Multiplied by the attempt number
	OnFailure   FailureFunc   // Defaults to a zerolog warning

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the standard 3 attempts with a 2s base delay
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Backoff returns the delay applied after the given 1-based attempt
func (p Policy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Run executes fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The final error is wrapped, so errors.Is and
// errors.As still reach it.
func (p Policy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Debug().
					Int("attempts", attempt).
					Msg("Retry succeeded")
			}
			return nil
		}

		lastErr = err
		p.reportFailure(attempt, maxAttempts, err)

		if !shouldRetry(ctx, err) {
			return err
		}

		if attempt < maxAttempts {
			if sleepErr := p.wait(ctx, p.Backoff(attempt)); sleepErr != nil {
				return sleepErr
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (p Policy) reportFailure(attempt, maxAttempts int, err error) {
	if p.OnFailure != nil {
		p.OnFailure(attempt, maxAttempts, err)
		return
	}
	log.Warn().
		Int("attempt", attempt).
		Int("max_attempts", maxAttempts).
		Err(err).
		Msg("Attempt failed")
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shouldRetry determines if an error is retryable
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errs.IsRetryable(err)
}
