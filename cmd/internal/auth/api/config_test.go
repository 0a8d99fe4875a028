package authapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marquee/cmd/internal/auth/flow"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("MARQUEE_AUTH_TRUST_PROXY", "")
	t.Setenv("MARQUEE_AUTH_MAX_BODY_BYTES", "")
	t.Setenv("MARQUEE_EMAIL_ORACLE", "")
	t.Setenv("MARQUEE_EMAIL_ORACLE_URL", "")

	cfg := LoadConfigFromEnv()
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, OracleSyntax, cfg.OracleMode)
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
}

func TestLoadConfigFromEnv_OracleSelection(t *testing.T) {
	tests := []struct {
		name string
		mode string
		url  string
		want OracleMode
	}{
		{name: "url implies http", url: "https://verify.example/v2/validate", want: OracleHTTP},
		{name: "explicit off", mode: "off", url: "https://verify.example", want: OracleOff},
		{name: "http without url falls back", mode: "http", want: OracleSyntax},
		{name: "unknown mode keeps default", mode: "dns", want: OracleSyntax},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("MARQUEE_EMAIL_ORACLE", tc.mode)
			t.Setenv("MARQUEE_EMAIL_ORACLE_URL", tc.url)
			assert.Equal(t, tc.want, LoadConfigFromEnv().OracleMode)
		})
	}
}

func TestLoadConfigFromEnv_InvalidNumbersKeepDefaults(t *testing.T) {
	t.Setenv("MARQUEE_AUTH_MAX_BODY_BYTES", "-5")
	t.Setenv("MARQUEE_EMAIL_ORACLE_TIMEOUT", "soon")
	t.Setenv("MARQUEE_AUTH_TRUST_PROXY", "yes please")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
	assert.False(t, cfg.TrustProxy)
}

func TestNewEmailOracle(t *testing.T) {
	assert.IsType(t, authflow.AllowAllOracle{}, NewEmailOracle(Config{OracleMode: OracleOff}, nil))
	assert.IsType(t, &authflow.SyntaxOracle{}, NewEmailOracle(Config{OracleMode: OracleSyntax}, nil))
	assert.IsType(t, &authflow.SyntaxOracle{}, NewEmailOracle(Config{OracleMode: OracleHTTP}, nil))
	assert.IsType(t, &authflow.HTTPOracle{}, NewEmailOracle(Config{OracleMode: OracleHTTP, OracleURL: "http://127.0.0.1:1"}, nil))
}
