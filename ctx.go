package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultContextKey is the request locals key holding the principal.
const DefaultContextKey = "principal"

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the authenticated principal in the given context
func WithPrincipal(ctx context.Context, principal *AuthenticatedPrincipal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal in the context.
func PrincipalFromContext(ctx context.Context) (*AuthenticatedPrincipal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*AuthenticatedPrincipal)
	return raw, ok && raw != nil
}

// PrincipalFromRequest reads the principal bound by the JWT middleware,
// checking the request context first and then locals under key.
func PrincipalFromRequest(c router.Context, key string) (*AuthenticatedPrincipal, bool) {
	if p, ok := PrincipalFromContext(c.Context()); ok {
		return p, true
	}
	if key == "" {
		key = DefaultContextKey
	}
	p, ok := c.Locals(key).(*AuthenticatedPrincipal)
	return p, ok && p != nil
}
