package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRevocations implements RevocationList over the revoked_tokens table.
type PostgresRevocations struct {
	pool   *pgxpool.Pool
	schema string
	now    func() time.Time
}

// NewPostgresRevocations creates a Postgres-backed revocation list.
// An empty schema means "public". The caller validates the schema name.
func NewPostgresRevocations(pool *pgxpool.Pool, schema string) (*PostgresRevocations, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	return &PostgresRevocations{pool: pool, schema: schema, now: time.Now}, nil
}

func (s *PostgresRevocations) table() string {
	return pgx.Identifier{s.schema, "revoked_tokens"}.Sanitize()
}

// Revoke inserts tok inside a transaction; the unique constraint on token
// turns a second revocation into ErrAlreadyRevoked.
func (s *PostgresRevocations) Revoke(ctx context.Context, tok string) error {
	const op = "session.Revoke"

	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrInvalidToken
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return storageErr(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.table()+` (token, revoked_at) VALUES ($1, $2)`,
		tok, s.now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRevoked
		}
		return storageErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr(op, err)
	}
	return nil
}

// IsRevoked reports whether tok has a row in revoked_tokens.
func (s *PostgresRevocations) IsRevoked(ctx context.Context, tok string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.table()+` WHERE token = $1)`,
		strings.TrimSpace(tok),
	).Scan(&exists)
	if err != nil {
		return false, storageErr("session.IsRevoked", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
