package requestctx

import (
	"context"
)

type contextKey string

const fiberLocalsKey = "requestctx"

// Key is the typed context key used for storing the operator context.
var Key contextKey = "risk-console/requestctx"

// Context identifies the authenticated operator behind a request.
type Context struct {
	Email string
	Name  string
}

// WithContext embeds the operator context into the parent context.
func WithContext(parent context.Context, rc *Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, Key, rc)
}

// FromContext retrieves the operator context if present.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(Key).(*Context)
	return rc, ok
}

// FiberLocalsKey returns the key used in fiber.Locals for operator context storage.
func FiberLocalsKey() string {
	return fiberLocalsKey
}
