package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	LogColor  bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32
	DBMigrate   bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	MetricsEnabled bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("MARQUEE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("MARQUEE_LOG_LEVEL", "info"),
		LogFormat: EnvString("MARQUEE_LOG_FORMAT", "json"),
		LogColor:  EnvBool("MARQUEE_LOG_COLOR", false),

		ReadHeaderTimeout: EnvDuration("MARQUEE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("MARQUEE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("MARQUEE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("MARQUEE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("MARQUEE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("MARQUEE_DATABASE_URL", ""),
		DBSchema:    EnvString("MARQUEE_DB_SCHEMA", "public"),
		DBMaxConns:  EnvInt32("MARQUEE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("MARQUEE_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("MARQUEE_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("MARQUEE_READINESS_REQUIRE_DB", false),

		MetricsEnabled: EnvBool("MARQUEE_METRICS_ENABLED", true),

		CORSAllowedOrigins:   EnvList("MARQUEE_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("MARQUEE_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("MARQUEE_CORS_MAX_AGE_SECONDS", 600),
	}
}
