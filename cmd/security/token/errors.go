package token

import "errors"

// Public, stable errors for callers.
var (
	// ErrMalformed means the token could not be parsed or its signature did not verify.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired means the signature is valid but the token is past its exp.
	ErrExpired = errors.New("token expired")

	ErrSigningKeyMissing  = errors.New("token signing key missing")
	ErrSigningKeyTooShort = errors.New("token signing key too short")
	ErrInvalidTTL         = errors.New("token ttl must be positive")
)
