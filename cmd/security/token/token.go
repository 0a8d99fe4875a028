package token

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// SigningKeyEnv is the env var name for the token signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SigningKeyEnv = "MARQUEE_TOKEN_SIGNING_KEY"
)

// Fingerprint returns a SHA-256 hex digest of a token.
// It identifies a token in logs and caches without exposing the bearer value.
func Fingerprint(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// SigningKeyFromEnv returns the configured signing key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSigningKeyMissing.
// If too short -> ErrSigningKeyTooShort.
func SigningKeyFromEnv(minBytes int) ([]byte, error) {
	return checkSigningKey(os.Getenv(SigningKeyEnv), minBytes)
}

func checkSigningKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSigningKeyMissing
	}
	// Measured in bytes, not runes: the key is used as raw HMAC key material.
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSigningKeyTooShort
	}
	return b, nil
}
