package ratelimit

import (
	"context"
	"time"

	"github.com/law-makers/mtgmeta/internal/retry"
	"github.com/rs/zerolog/log"
)

// DefaultBatchDelay is the pause inserted between items of a batch
const DefaultBatchDelay = 2 * time.Second

// Pacer enforces a fixed pause between successive items of a sequential
// batch. The pause is applied in full regardless of how long the previous
// item took. Replacing the sequential loop with fan-out would need a shared
// token bucket (see HostLimiter) instead.
type Pacer struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer; a non-positive delay falls back to DefaultBatchDelay
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Pacer{delay: delay, sleep: retry.Sleep}
}

// Delay returns the configured pause
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// DelayBetween blocks for the configured pause or until ctx is done
func (p *Pacer) DelayBetween(ctx context.Context) error {
	log.Debug().Dur("delay", p.delay).Msg("Pacing before next batch item")
	return p.sleep(ctx, p.delay)
}
