// Package app wires the Marquee server runtime: config, logging, storage
// backends, HTTP routes and middleware.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"marquee/cmd/identity"
	"marquee/cmd/internal/auth/api"
	"marquee/cmd/internal/auth/flow"
	"marquee/cmd/internal/auth/session"
	"marquee/cmd/internal/catalog"
	"marquee/cmd/internal/observability"
	"marquee/cmd/security/password"
	"marquee/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the Marquee server runtime.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *observability.Metrics

	auth    *authapi.Handler
	catalog *catalog.Handler
}

// backends are the storage implementations selected by config.
type backends struct {
	users   identity.Store
	revoked session.RevocationList
	movies  catalog.Store

	closer Store
	pool   *pgxpool.Pool
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	}

	if err := ValidateSecurityConfig(); err != nil {
		return nil, err
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	authCfg := authapi.LoadConfigFromEnv()

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	b, err := newBackends(context.Background(), cfg, sessCfg, metrics, log)
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, log, sessCfg, pwCfg, authCfg, metrics, b)
	if err != nil {
		_ = b.closer.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func assemble(
	cfg Config,
	log Logger,
	sessCfg session.Config,
	pwCfg password.Config,
	authCfg authapi.Config,
	metrics *observability.Metrics,
	b backends,
) (*App, error) {
	svc, gate, err := newAuthService(log, sessCfg, pwCfg, authCfg, metrics, b)
	if err != nil {
		return nil, err
	}

	var opts []authapi.HandlerOption
	if b.pool != nil {
		opts = append(opts, authapi.WithAudit(b.pool, cfg.DBSchema))
	}
	authHandler, err := authapi.NewHandler(log, svc, gate, sessCfg, authCfg, opts...)
	if err != nil {
		return nil, err
	}

	catalogHandler, err := catalog.NewHandler(b.movies, gate, log, authCfg.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     b.closer,
		dbPool:    b.pool,
		dbEnabled: b.pool != nil,
		metrics:   metrics,
		auth:      authHandler,
		catalog:   catalogHandler,
	}, nil
}

// newAuthService builds the token codec, the session gate and the auth flows
// over the selected backends.
func newAuthService(
	log Logger,
	sessCfg session.Config,
	pwCfg password.Config,
	authCfg authapi.Config,
	metrics *observability.Metrics,
	b backends,
) (*authflow.Service, *session.Gate, error) {
	codec, err := token.NewCodec(sessCfg.SigningKey)
	if err != nil {
		return nil, nil, err
	}

	gate, err := session.NewGate(codec, b.users, b.revoked, sessCfg,
		session.WithLogger(log),
		session.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, err
	}

	svc, err := authflow.NewService(authflow.Deps{
		Users:      b.users,
		Hasher:     pwCfg,
		Tokens:     codec,
		Verifier:   gate,
		Revoked:    b.revoked,
		Oracle:     authapi.NewEmailOracle(authCfg, log),
		DefaultTTL: sessCfg.TokenTTL,
		Log:        log,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, gate, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRecovery(h, a.log)
	h = WithRequestLogging(h, a.log, a.metrics)
	h = WithRequestID(h)
	return h
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"base_url", runtimeBaseURL(a.cfg.HTTPAddr),
		"db_enabled", a.dbEnabled,
		"metrics_enabled", a.metrics != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	addr = strings.TrimSpace(addr)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// newBackends decides between Postgres-backed persistence and in-memory dev stores.
func newBackends(ctx context.Context, cfg Config, sessCfg session.Config, metrics *observability.Metrics, log Logger) (backends, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("db.disabled.inmemory_store", "note", "state is lost on restart")
		return backends{
			users:   identity.NewMemoryStore(),
			revoked: session.NewMemoryRevocations(),
			movies:  catalog.NewMemoryStore(),
			closer:  nopStore{},
		}, nil
	}

	// Migrations run before the pool is used so every table exists.
	sqlDB, err := OpenSQL(ctx, cfg, log)
	if err != nil {
		return backends{}, err
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return backends{}, err
	}
	closer := dbStore{pool: pool, sqlDB: sqlDB}

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		_ = closer.Close(ctx)
		return backends{}, err
	}
	pgRevoked, err := session.NewPostgresRevocations(pool, cfg.DBSchema)
	if err != nil {
		_ = closer.Close(ctx)
		return backends{}, err
	}
	movies, err := catalog.NewSQLStore(sqlDB, cfg.DBSchema)
	if err != nil {
		_ = closer.Close(ctx)
		return backends{}, err
	}

	var revoked session.RevocationList = pgRevoked
	if sessCfg.RevocationCacheSize > 0 {
		revoked = session.NewCachedRevocations(pgRevoked, sessCfg.RevocationCacheSize, sessCfg.RevocationCacheTTL, metrics)
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema, "revocation_cache", sessCfg.RevocationCacheSize)

	return backends{
		users:   users,
		revoked: revoked,
		movies:  movies,
		closer:  closer,
		pool:    pool,
	}, nil
}

// dbStore owns the pgx pool and the database/sql handle.
type dbStore struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

func (s dbStore) Close(_ context.Context) error {
	var err error
	if s.sqlDB != nil {
		err = s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
