package approvals

import (
	"github.com/goliatone/go-approvals/middleware/jwtware"
)

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnauthenticated
	}
	return f(tokenString)
}

// SubjectValidator returns a validator that only accepts tokens minted for
// the given subject type.
func SubjectValidator(ts TokenService, subject SubjectType) TokenValidator {
	return TokenValidatorFunc(func(tokenString string) (AuthClaims, error) {
		return ts.ValidateFor(tokenString, subject)
	})
}

// MiddlewareValidator adapts a TokenValidator to the jwtware contract.
func MiddlewareValidator(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(tokenString string) (jwtware.AuthClaims, error) {
		claims, err := v.Validate(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}
