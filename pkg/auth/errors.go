package auth

import "errors"

var (
	ErrMissingIssuer     = errors.New("auth: issuer must be set")
	ErrJWKSInit          = errors.New("auth: failed to init JWKS keyfunc")
	ErrMissingToken      = errors.New("auth: missing session token")
	ErrInvalidToken      = errors.New("auth: invalid session token")
	ErrMissingSubject    = errors.New("auth: token missing sub")
	ErrUnauthorizedParty = errors.New("auth: token issued for an unauthorized party")
)
