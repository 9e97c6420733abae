// Package requestid carries the per-request correlation ID through contexts.
package requestid

import "context"

type contextKey struct{}

// Header is the HTTP header carrying the request ID
const Header = "X-Request-ID"

// WithID returns a copy of ctx carrying id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the request ID, or "" when absent
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return ""
}
