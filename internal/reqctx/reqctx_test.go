package reqctx

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithRun(t *testing.T) {
	ctx := WithRun(context.Background(), "deck top")
	r := FromContext(ctx)

	if len(r.ID) != 16 {
		t.Errorf("expected 16 hex chars, got %q", r.ID)
	}
	if r.Command != "deck top" {
		t.Errorf("unexpected command %q", r.Command)
	}
	if Logger(ctx) == nil {
		t.Error("expected a logger")
	}
}

func TestFromContext_Missing(t *testing.T) {
	if r := FromContext(context.Background()); r.ID != "unknown" {
		t.Errorf("expected placeholder run, got %q", r.ID)
	}
	if Logger(context.Background()) == nil {
		t.Error("expected global logger fallback")
	}
}

func TestWrapError(t *testing.T) {
	ctx := WithRun(context.Background(), "metagame scrape")
	base := errors.New("boom")

	err := WrapError(ctx, base)
	if !errors.Is(err, base) {
		t.Error("wrapped error lost its cause")
	}
	if !strings.HasPrefix(err.Error(), "["+FromContext(ctx).ID+"]") {
		t.Errorf("missing run id prefix: %v", err)
	}
	if WrapError(ctx, nil) != nil {
		t.Error("nil should stay nil")
	}
}
