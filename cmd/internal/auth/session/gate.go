package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"marquee/cmd/identity"
	"marquee/cmd/internal/httpjson"
	"marquee/cmd/internal/observability"
	"marquee/cmd/security/token"
)

// TokenDecoder verifies a token and returns its subject id.
// Errors are token.ErrMalformed or token.ErrExpired.
type TokenDecoder interface {
	Decode(tok string) (int64, error)
}

// Gate resolves bearer tokens into identities.
type Gate struct {
	decoder    TokenDecoder
	users      identity.Store
	revoked    RevocationList
	transport  Transport
	cookieName string
	log        *slog.Logger
	metrics    *observability.Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the logger used for rejection events.
func WithLogger(log *slog.Logger) GateOption {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// NewGate builds a Gate. transport and cookieName come from Config.
func NewGate(decoder TokenDecoder, users identity.Store, revoked RevocationList, cfg Config, opts ...GateOption) (*Gate, error) {
	if decoder == nil || users == nil || revoked == nil {
		return nil, errors.New("session: gate requires decoder, users and revocation list")
	}
	transport := cfg.Transport
	if transport == "" {
		transport = TransportHeader
	}
	if transport != TransportHeader && transport != TransportCookie {
		return nil, ErrConfig
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = DefaultConfig().CookieName
	}

	g := &Gate{
		decoder:    decoder,
		users:      users,
		revoked:    revoked,
		transport:  transport,
		cookieName: cookieName,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Transport reports the token transport this gate reads.
func (g *Gate) Transport() Transport { return g.transport }

// Verify checks a raw token string: presence, signature and expiry,
// revocation, then the owning user. Store failures are wrapped in
// ErrStorage and are not rejections.
func (g *Gate) Verify(ctx context.Context, tok string) (identity.User, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return identity.User{}, reject(ErrMissingToken)
	}

	userID, err := g.decoder.Decode(tok)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return identity.User{}, reject(ErrExpiredToken)
		}
		return identity.User{}, reject(ErrInvalidToken)
	}

	revoked, err := g.revoked.IsRevoked(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return identity.User{}, err
		}
		return identity.User{}, storageErr("session.Verify", err)
	}
	if revoked {
		return identity.User{}, reject(ErrRevokedToken)
	}

	u, err := g.users.FindByID(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, reject(ErrInvalidToken)
		}
		return identity.User{}, storageErr("session.Verify", err)
	}
	return u, nil
}

// Authenticate extracts the token from r using the configured transport and verifies it.
func (g *Gate) Authenticate(r *http.Request) (identity.User, string, error) {
	tok := g.Extract(r)
	u, err := g.Verify(r.Context(), tok)
	if err != nil {
		return identity.User{}, "", err
	}
	return u, tok, nil
}

// Extract returns the raw token carried by r, or "".
func (g *Gate) Extract(r *http.Request) string {
	if r == nil {
		return ""
	}
	switch g.transport {
	case TransportCookie:
		c, err := r.Cookie(g.cookieName)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(c.Value)
	default:
		return bearerToken(r)
	}
}

// Require rejects unauthenticated requests with 401 and otherwise calls next
// with the identity attached to the request context.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, tok, err := g.Authenticate(r)
		if err != nil {
			g.WriteFailure(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u, tok)))
	})
}

// WriteFailure renders a Verify/Authenticate error: 401 for rejections,
// 500 for storage failures.
func (g *Gate) WriteFailure(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := IsRejection(err); ok {
		g.metrics.GateRejection(rej.Code())
		g.log.Info("session.reject", "reason", rej.Code(), "path", r.URL.Path)
		if g.transport == TransportHeader {
			w.Header().Set("WWW-Authenticate", `Bearer realm="marquee"`)
		}
		httpjson.Error(w, http.StatusUnauthorized, "reauthenticate", "Authentication required")
		return
	}
	g.log.Error("session.verify.fail", "err", err, "path", r.URL.Path)
	httpjson.Error(w, http.StatusInternalServerError, "server_error", "Internal server error")
}

// RequireAdmin allows only identities with the admin flag. It must run
// behind Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			httpjson.Error(w, http.StatusUnauthorized, "reauthenticate", "Authentication required")
			return
		}
		if !u.IsAdmin {
			httpjson.Error(w, http.StatusForbidden, "admin_required", "Admin privilege required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
