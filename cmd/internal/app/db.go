package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marquee/cmd/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// It does NOT run migrations; see OpenSQL and migrations.Up.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// OpenSQL opens the database/sql handle used by migrations and the catalog
// store, applying migrations first when cfg.DBMigrate is set.
func OpenSQL(ctx context.Context, cfg Config, log Logger) (*sql.DB, error) {
	db, err := migrations.Open(cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		return nil, err
	}
	if cfg.DBMaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.DBMaxConns))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	if cfg.DBMigrate {
		start := time.Now()
		if err := migrations.Up(ctx, db, cfg.DBSchema); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("db.migrate.ok", "schema", cfg.DBSchema, "duration_ms", time.Since(start).Milliseconds())
	}
	return db, nil
}
