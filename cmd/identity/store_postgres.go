package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store never closes it.
// Schema and table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "public").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !PGIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "public",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, display_name, email, password_hash, is_admin, created_at`

// FindByEmail returns the user whose stored email equals email exactly.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.FindByEmail"

	email = NormalizeEmail(email)
	if email == "" {
		return User{}, invalid(op, "email is required")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		   FROM `+pgIdent(s.schema, "users")+`
		  WHERE email = $1`,
		email,
	)
	return scanUser(op, "email", row)
}

// FindByID returns the user with the given id.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (User, error) {
	const op = "identity.FindByID"

	if id <= 0 {
		return User{}, notFoundByID(op)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		   FROM `+pgIdent(s.schema, "users")+`
		  WHERE id = $1`,
		id,
	)
	return scanUser(op, "id", row)
}

// Insert creates a user inside a transaction.
func (s *PostgresStore) Insert(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.Insert"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	in, err := in.normalized(op)
	if err != nil {
		return User{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := User{
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsAdmin:      in.IsAdmin,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO `+pgIdent(s.schema, "users")+` (
		     display_name, email, password_hash, is_admin, created_at
		   ) VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		in.DisplayName,
		in.Email,
		in.PasswordHash,
		in.IsAdmin,
		in.Now,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return out, nil
}

// UpdatePassword replaces the stored hash of user id inside a transaction.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, newHash string) error {
	const op = "identity.UpdatePassword"

	if strings.TrimSpace(newHash) == "" {
		return invalid(op, "password hash is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "users")+`
		    SET password_hash = $2
		  WHERE id = $1`,
		id, newHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundByID(op)
	}

	return tx.Commit(ctx)
}

// ---- helpers ----

func scanUser(op, by string, row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, By: by}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// PGIdentIsValid checks if a string is a safe Postgres identifier.
func PGIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names, fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_email", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
