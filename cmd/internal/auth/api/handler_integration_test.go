package authapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/cmd/identity"
	"marquee/cmd/internal/auth/flow"
	"marquee/cmd/internal/auth/session"
	"marquee/cmd/internal/migrations"
	"marquee/cmd/security/password"
	"marquee/cmd/security/token"
)

// Integration tests are opt-in and require MARQUEE_DATABASE_URL.

func TestAuthAPI_Postgres_FullFlowWritesAudit(t *testing.T) {
	pool, dsn := mustOpenAuthTestPool(t)
	defer pool.Close()

	schema := "marquee_it_" + strings.ToLower(ulid.Make().String())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := migrations.Open(dsn, schema)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, migrations.Up(ctx, db, schema))

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(schema))
	require.NoError(t, err)
	revoked, err := session.NewPostgresRevocations(pool, schema)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := token.NewCodec([]byte(testSigningKey))
	require.NoError(t, err)
	gate, err := session.NewGate(codec, users, revoked, session.DefaultConfig(), session.WithLogger(log))
	require.NoError(t, err)
	svc, err := authflow.NewService(authflow.Deps{
		Users:    users,
		Hasher:   password.LowCostConfig(),
		Tokens:   codec,
		Verifier: gate,
		Revoked:  revoked,
		Log:      log,
	})
	require.NoError(t, err)

	h, err := NewHandler(log, svc, gate, session.DefaultConfig(), Config{MaxBodyBytes: 1 << 16}, WithAudit(pool, schema))
	require.NoError(t, err)
	f := &apiFixture{mux: http.NewServeMux()}
	h.Register(f.mux)

	rr := f.do(t, http.MethodPost, "/auth/register", registerRequest{Name: "A", Email: "a@x.com", Password: "pw1"}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tok := decodeBody[authResponse](t, rr).AuthToken

	rr = f.do(t, http.MethodPost, "/auth/register", registerRequest{Name: "A", Email: "a@x.com", Password: "pw2"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodGet, "/auth/status", nil, tok)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/logout", nil, tok)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, "/auth/status", nil, tok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rows, err := pool.Query(ctx, `SELECT action FROM `+pgx.Identifier{schema, "audit_log"}.Sanitize()+` ORDER BY id`)
	require.NoError(t, err)
	actions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.register", "auth.logout"}, actions)
}

func mustOpenAuthTestPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("MARQUEE_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: MARQUEE_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse MARQUEE_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipAuthIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (MARQUEE_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool, raw
}

func shouldSkipAuthIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host")
}
