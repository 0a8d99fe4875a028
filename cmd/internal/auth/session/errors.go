package session

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken: the request carried no token.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken: the token is malformed, badly signed or names an unknown user.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken: the token is correctly signed but past its expiry.
	ErrExpiredToken = errors.New("expired token")

	// ErrRevokedToken: the token was revoked by a logout.
	ErrRevokedToken = errors.New("revoked token")

	// ErrAlreadyRevoked is returned by Revoke when the token is already listed.
	ErrAlreadyRevoked = errors.New("token already revoked")

	// ErrStorage wraps backing store failures met during verification or revocation.
	ErrStorage = errors.New("session storage failure")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// Rejection is the typed outcome of a failed verification.
// Reason is one of ErrMissingToken, ErrInvalidToken, ErrExpiredToken, ErrRevokedToken.
type Rejection struct {
	Reason error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("session rejected: %v", r.Reason)
}

func (r Rejection) Unwrap() error { return r.Reason }

// Code returns a stable snake_case label for logs and metrics.
func (r Rejection) Code() string {
	switch {
	case errors.Is(r.Reason, ErrMissingToken):
		return "missing_token"
	case errors.Is(r.Reason, ErrExpiredToken):
		return "expired_token"
	case errors.Is(r.Reason, ErrRevokedToken):
		return "revoked_token"
	default:
		return "invalid_token"
	}
}

// IsRejection reports whether err is a Rejection and returns it.
func IsRejection(err error) (Rejection, bool) {
	var r Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return Rejection{}, false
}

func reject(reason error) error { return Rejection{Reason: reason} }

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
