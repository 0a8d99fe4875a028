package authapi

import (
	"log/slog"
	"net/http"

	"marquee/cmd/internal/auth/flow"
)

// NewEmailOracle returns the registration email oracle selected by cfg.
func NewEmailOracle(cfg Config, log *slog.Logger) authflow.EmailOracle {
	switch cfg.OracleMode {
	case OracleOff:
		return authflow.AllowAllOracle{}
	case OracleHTTP:
		if cfg.OracleURL == "" {
			return authflow.NewSyntaxOracle()
		}
		return authflow.NewHTTPOracle(cfg.OracleURL, cfg.OracleAPIKey, &http.Client{Timeout: cfg.OracleTimeout}, log)
	default:
		return authflow.NewSyntaxOracle()
	}
}
