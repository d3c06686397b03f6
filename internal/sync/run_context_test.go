package sync

import (
	"context"
	"testing"
)

func TestWithSourceScopeRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithSourceScope(context.Background(), " payments ")
	id, ok := SourceScopeFromContext(ctx)
	if !ok {
		t.Fatalf("expected scope in context")
	}
	if id != "payments" {
		t.Fatalf("scope = %q, want %q", id, "payments")
	}
}

func TestWithSourceScopeIgnoresEmptyID(t *testing.T) {
	t.Parallel()

	ctx := WithSourceScope(nil, " ")
	if _, ok := SourceScopeFromContext(ctx); ok {
		t.Fatalf("expected no scope for an empty id")
	}
	if _, ok := SourceScopeFromContext(nil); ok {
		t.Fatalf("expected no scope for a nil context")
	}
}

func TestRunIDFromContext(t *testing.T) {
	t.Parallel()

	if got := RunIDFromContext(context.Background()); got != "" {
		t.Fatalf("RunIDFromContext(background) = %q", got)
	}
	if got := RunIDFromContext(withRunID(context.Background(), "01J")); got != "01J" {
		t.Fatalf("RunIDFromContext() = %q, want 01J", got)
	}
}
