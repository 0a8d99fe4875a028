package app

import (
	"errors"
	"fmt"

	"marquee/cmd/internal/auth/session"
	"marquee/cmd/security/token"
)

// ValidateSecurityConfig fails startup when the token signing key is unusable.
// Tokens are never issued with a missing or short key.
func ValidateSecurityConfig() error {
	if _, err := token.SigningKeyFromEnv(session.MinSigningKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrSigningKeyMissing):
			return errors.New("security policy: MARQUEE_TOKEN_SIGNING_KEY is missing")
		case errors.Is(err, token.ErrSigningKeyTooShort):
			return fmt.Errorf("security policy: MARQUEE_TOKEN_SIGNING_KEY is too short (min %d bytes)", session.MinSigningKeyBytes)
		default:
			return err
		}
	}
	return nil
}
