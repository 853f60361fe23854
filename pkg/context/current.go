package context

import (
	"context"
)

// Current holds request scoped values shared by middleware, handlers and logs.
type Current struct {
	RequestID string
	UserAgent string
	IPAddress string
	Method    string
	Path      string
}

type contextKey struct{}

func SetCurrent(ctx context.Context, current *Current) context.Context {
	return context.WithValue(ctx, contextKey{}, current)
}

func FromContext(ctx context.Context) (*Current, bool) {
	current, ok := ctx.Value(contextKey{}).(*Current)
	return current, ok && current != nil
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if current, ok := FromContext(ctx); ok {
		return current.RequestID
	}

	return ""
}
