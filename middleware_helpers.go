package approvals

import (
	"context"

	"github.com/goliatone/go-approvals/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener type
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores verified claims in the request context so
// services called with c.UserContext() can read them through GetClaims.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
