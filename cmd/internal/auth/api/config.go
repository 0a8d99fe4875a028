package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// OracleMode selects how registration emails are screened.
type OracleMode string

const (
	// OracleSyntax checks address syntax only.
	OracleSyntax OracleMode = "syntax"
	// OracleHTTP asks a remote verification service.
	OracleHTTP OracleMode = "http"
	// OracleOff accepts any non-blank address.
	OracleOff OracleMode = "off"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	OracleMode    OracleMode
	OracleURL     string
	OracleAPIKey  string
	OracleTimeout time.Duration
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
//
// A configured MARQUEE_EMAIL_ORACLE_URL switches the default mode to http.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:    envBool("MARQUEE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:  envInt64("MARQUEE_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		OracleURL:     strings.TrimSpace(os.Getenv("MARQUEE_EMAIL_ORACLE_URL")),
		OracleAPIKey:  strings.TrimSpace(os.Getenv("MARQUEE_EMAIL_ORACLE_API_KEY")),
		OracleTimeout: envDuration("MARQUEE_EMAIL_ORACLE_TIMEOUT", 5*time.Second),
	}

	defMode := OracleSyntax
	if cfg.OracleURL != "" {
		defMode = OracleHTTP
	}
	cfg.OracleMode = parseOracleMode(os.Getenv("MARQUEE_EMAIL_ORACLE"), defMode)
	if cfg.OracleMode == OracleHTTP && cfg.OracleURL == "" {
		cfg.OracleMode = OracleSyntax
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func parseOracleMode(v string, def OracleMode) OracleMode {
	switch OracleMode(strings.ToLower(strings.TrimSpace(v))) {
	case OracleSyntax:
		return OracleSyntax
	case OracleHTTP:
		return OracleHTTP
	case OracleOff:
		return OracleOff
	default:
		return def
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
