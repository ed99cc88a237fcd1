package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/law-makers/mtgmeta/internal/errs"
)

// recordingSleep captures requested delays without actually sleeping
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRun_AlwaysFailing(t *testing.T) {
	var delays []time.Duration
	var reported []int
	finalErr := errors.New("attempt 3 failed")

	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		OnFailure: func(attempt, max int, err error) {
			reported = append(reported, attempt)
		},
		sleep: recordingSleep(&delays),
	}

	calls := 0
	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return finalErr
		}
		return errors.New("transient")
	})

	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !errors.Is(err, finalErr) {
		t.Errorf("expected final error to be returned, got %v", err)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps between 3 attempts, got %d", len(delays))
	}
	if delays[0] != 2*time.Second || delays[1] != 4*time.Second {
		t.Errorf("expected linear delays [2s 4s], got %v", delays)
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] <= delays[i-1] {
			t.Errorf("delays not strictly increasing: %v", delays)
		}
	}
	if len(reported) != 3 {
		t.Errorf("expected every failed attempt to be reported, got %v", reported)
	}
}

func TestRun_SucceedsAfterFailure(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, OnFailure: func(int, int, error) {}, sleep: recordingSleep(&delays)}

	calls := 0
	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errs.Transient("navigate", errors.New("reset"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
	if len(delays) != 1 || delays[0] != time.Second {
		t.Errorf("expected a single 1s delay, got %v", delays)
	}
}

func TestRun_NonRetryableStopsImmediately(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, OnFailure: func(int, int, error) {}, sleep: recordingSleep(&delays)}

	calls := 0
	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.Validation("bad input")
	})

	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
	if !errs.HasCode(err, errs.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps, got %v", delays)
	}
}

func TestRun_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour, OnFailure: func(int, int, error) {}}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", calls)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if p.Backoff(1) != 2*time.Second || p.Backoff(2) != 4*time.Second {
		t.Errorf("unexpected backoff: %v %v", p.Backoff(1), p.Backoff(2))
	}
}
