// Package reqctx carries per-invocation run metadata through a context.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const runKey key = 0

// Run identifies one CLI invocation
type Run struct {
	ID        string
	Command   string
	StartTime time.Time
}

// Elapsed returns the time since the run started
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.StartTime)
}

// WithRun starts a run for command and attaches a logger tagged with the
// run ID, so every log line of the invocation can be correlated.
func WithRun(ctx context.Context, command string) context.Context {
	r := &Run{
		ID:        generateID(),
		Command:   command,
		StartTime: time.Now(),
	}
	logger := log.With().Str("run_id", r.ID).Str("command", command).Logger()
	ctx = logger.WithContext(ctx)
	return context.WithValue(ctx, runKey, r)
}

// FromContext returns the current run, or a placeholder when none was started
func FromContext(ctx context.Context) *Run {
	if r, ok := ctx.Value(runKey).(*Run); ok {
		return r
	}
	return &Run{
		ID:        "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns the run's logger, falling back to the global one
func Logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}

func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// RunError tags an error with the run that produced it
type RunError struct {
	RunID string
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	return e.Err
}

// WrapError tags err with the run ID from ctx; nil stays nil
func WrapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &RunError{
		RunID: FromContext(ctx).ID,
		Err:   err,
	}
}
