package session

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"marquee/cmd/security/token"
)

// Transport selects where the Gate looks for a bearer token.
type Transport string

const (
	// TransportHeader reads "Authorization: Bearer <token>".
	TransportHeader Transport = "header"
	// TransportCookie reads the configured auth cookie.
	TransportCookie Transport = "cookie"
)

// MinSigningKeyBytes is the minimum HMAC key size accepted at startup.
const MinSigningKeyBytes = 32

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// SigningKey is the HS256 secret shared by issuance and verification.
	SigningKey []byte

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// Transport is fixed for the lifetime of the process.
	Transport Transport

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// RevocationCacheSize bounds the positive revocation cache; 0 disables it.
	RevocationCacheSize int
	RevocationCacheTTL  time.Duration
}

// DefaultConfig returns defaults suitable for development.
// SigningKey is never defaulted.
func DefaultConfig() Config {
	return Config{
		TokenTTL:            24 * time.Hour,
		Transport:           TransportHeader,
		CookieName:          "auth_token",
		CookiePath:          "/",
		CookieSecure:        true,
		CookieSameSite:      http.SameSiteStrictMode,
		RevocationCacheSize: 10_000,
		RevocationCacheTTL:  time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - MARQUEE_TOKEN_SIGNING_KEY (at least MinSigningKeyBytes bytes)
//
// Optional:
//   - MARQUEE_AUTH_TOKEN_TTL (Go duration, default 24h)
//   - MARQUEE_AUTH_TRANSPORT (header|cookie, default header)
//   - MARQUEE_AUTH_COOKIE_NAME (default auth_token)
//   - MARQUEE_AUTH_COOKIE_PATH, MARQUEE_AUTH_COOKIE_DOMAIN
//   - MARQUEE_AUTH_COOKIE_SECURE (default true)
//   - MARQUEE_AUTH_COOKIE_SAMESITE (strict|lax|none|default, default strict)
//   - MARQUEE_REVOCATION_CACHE_SIZE (default 10000, 0 disables)
//   - MARQUEE_REVOCATION_CACHE_TTL (default 1h)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	key, err := token.SigningKeyFromEnv(MinSigningKeyBytes)
	if err != nil {
		return Config{}, ErrConfig
	}
	cfg.SigningKey = key

	if v := strings.TrimSpace(os.Getenv("MARQUEE_AUTH_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("MARQUEE_AUTH_TRANSPORT")); v != "" {
		t, err := ParseTransport(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Transport = t
	}

	if v := strings.TrimSpace(os.Getenv("MARQUEE_AUTH_COOKIE_NAME")); v != "" {
		if strings.ContainsAny(v, " ;,=") {
			return Config{}, ErrConfig
		}
		cfg.CookieName = v
	}
	if v := strings.TrimSpace(os.Getenv("MARQUEE_AUTH_COOKIE_PATH")); v != "" {
		cfg.CookiePath = v
	}
	cfg.CookieDomain = strings.TrimSpace(os.Getenv("MARQUEE_AUTH_COOKIE_DOMAIN"))

	if v := strings.TrimSpace(os.Getenv("MARQUEE_AUTH_COOKIE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.CookieSecure = b
	}
	if v := strings.TrimSpace(os.Getenv("MARQUEE_AUTH_COOKIE_SAMESITE")); v != "" {
		cfg.CookieSameSite = parseSameSite(v)
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		cfg.CookieSecure = true
	}

	if v := strings.TrimSpace(os.Getenv("MARQUEE_REVOCATION_CACHE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, ErrConfig
		}
		cfg.RevocationCacheSize = n
	}
	if v := strings.TrimSpace(os.Getenv("MARQUEE_REVOCATION_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RevocationCacheTTL = d
	}

	return cfg, nil
}

// ParseTransport parses "header" or "cookie" (case-insensitive).
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case TransportHeader:
		return TransportHeader, nil
	case TransportCookie:
		return TransportCookie, nil
	default:
		return "", ErrConfig
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteStrictMode
	}
}
