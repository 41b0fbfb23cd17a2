package auth

import (
	"context"

	"github.com/salesreport/go-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores the authenticated principal in the
// standard context for downstream handlers.
func ContextEnricherAdapter(c context.Context, principal jwtware.AuthPrincipal) context.Context {
	p, ok := principal.(*AuthenticatedPrincipal)
	if !ok || p == nil {
		return c
	}
	return WithPrincipal(c, p)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
