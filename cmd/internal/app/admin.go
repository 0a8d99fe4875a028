package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"marquee/cmd/identity"
	"marquee/cmd/internal/auth/api"
	"marquee/cmd/internal/auth/flow"
	"marquee/cmd/internal/auth/session"
	"marquee/cmd/internal/catalog"
	"marquee/cmd/security/password"
)

// ErrAdminNeedsDB is returned by NewAdmin when no database is configured.
var ErrAdminNeedsDB = errors.New("admin: MARQUEE_DATABASE_URL is required")

// Admin runs operator tasks against the configured database.
type Admin struct {
	log    Logger
	svc    *authflow.Service
	movies catalog.Store
	closer Store
}

// NewAdmin opens the same backends the server uses. Migrations run when
// cfg.DBMigrate is set.
func NewAdmin(ctx context.Context, cfg Config, log Logger) (*Admin, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrAdminNeedsDB
	}
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	b, err := newBackends(ctx, cfg, sessCfg, nil, log)
	if err != nil {
		return nil, err
	}
	return newAdminOver(log, sessCfg, pwCfg, authapi.LoadConfigFromEnv(), b)
}

func newAdminOver(log Logger, sessCfg session.Config, pwCfg password.Config, authCfg authapi.Config, b backends) (*Admin, error) {
	svc, _, err := newAuthService(log, sessCfg, pwCfg, authCfg, nil, b)
	if err != nil {
		_ = b.closer.Close(context.Background())
		return nil, err
	}
	return &Admin{log: log, svc: svc, movies: b.movies, closer: b.closer}, nil
}

// CreateAdmin provisions an administrator identity.
func (a *Admin) CreateAdmin(ctx context.Context, name, email, plaintext string) (identity.User, error) {
	return a.svc.CreateAdmin(ctx, name, email, plaintext)
}

// ImportMovies loads a JSON catalog dump.
func (a *Admin) ImportMovies(ctx context.Context, r io.Reader) (int, error) {
	n, err := catalog.ImportJSON(ctx, a.movies, r)
	a.log.Info("admin.import.done", "added", n, "err", err)
	return n, err
}

// Close releases database resources.
func (a *Admin) Close(ctx context.Context) error {
	return a.closer.Close(ctx)
}
