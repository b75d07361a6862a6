// Package ctxutil carries interaction metadata through a context.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

type actorKey struct{}

type requestIDKey struct{}

// WithActor records who drives the current interaction cycle,
// e.g. "cli" or "http".
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the actor recorded on ctx, or "" if none.
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID records the ID of the HTTP request being served.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID recorded on ctx, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
