package ctxutil

import (
	"context"
	"testing"
)

func TestActorAndRequestID(t *testing.T) {
	ctx := context.Background()
	if Actor(ctx) != "" || RequestID(ctx) != "" {
		t.Fatal("expected empty values on a bare context")
	}

	ctx = WithRequestID(WithActor(ctx, "http"), "req-1")
	if got := Actor(ctx); got != "http" {
		t.Errorf("expected actor 'http', got %q", got)
	}
	if got := RequestID(ctx); got != "req-1" {
		t.Errorf("expected request ID 'req-1', got %q", got)
	}
}
