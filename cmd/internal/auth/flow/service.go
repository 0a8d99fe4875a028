package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marquee/cmd/identity"
	"marquee/cmd/internal/auth/session"
	"marquee/cmd/internal/observability"
	"marquee/cmd/security/password"
	"marquee/cmd/security/token"
)

// Hasher is the password hashing surface the flows need.
// password.Config satisfies it.
type Hasher interface {
	Validate(plaintext string) error
	Hash(plaintext string) (string, error)
	Matches(encodedHash, plaintext string) bool
}

// Issuer mints signed tokens. *token.Codec satisfies it.
type Issuer interface {
	Issue(subjectID int64, ttl time.Duration) (string, error)
}

// Verifier resolves a raw token into a live identity. *session.Gate satisfies it.
type Verifier interface {
	Verify(ctx context.Context, tok string) (identity.User, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Users    identity.Store
	Hasher   Hasher
	Tokens   Issuer
	Verifier Verifier
	Revoked  session.RevocationList
	Oracle   EmailOracle

	// DefaultTTL applies when a caller passes ttl <= 0.
	DefaultTTL time.Duration

	Log     *slog.Logger
	Metrics *observability.Metrics
}

// Service runs the auth flows.
type Service struct {
	users    identity.Store
	hasher   Hasher
	tokens   Issuer
	verifier Verifier
	revoked  session.RevocationList
	oracle   EmailOracle
	ttl      time.Duration
	log      *slog.Logger
	metrics  *observability.Metrics

	dummyHash string
}

// NewService validates deps and precomputes the timing-parity hash.
func NewService(d Deps) (*Service, error) {
	if d.Users == nil || d.Hasher == nil || d.Tokens == nil || d.Verifier == nil || d.Revoked == nil {
		return nil, errors.New("authflow: users, hasher, tokens, verifier and revocation list are required")
	}
	if d.Oracle == nil {
		d.Oracle = NewSyntaxOracle()
	}
	if d.DefaultTTL <= 0 {
		d.DefaultTTL = 24 * time.Hour
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	s := &Service{
		users:    d.Users,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		verifier: d.Verifier,
		revoked:  d.Revoked,
		oracle:   d.Oracle,
		ttl:      d.DefaultTTL,
		log:      d.Log,
		metrics:  d.Metrics,
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := d.Hasher.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	return s, nil
}

// DefaultTTL returns the deployment token lifetime.
func (s *Service) DefaultTTL() time.Duration { return s.ttl }

// RegisterInput is the registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// TTL overrides the default token lifetime when positive.
	TTL time.Duration
}

// Registered is a successful registration.
type Registered struct {
	User  identity.User
	Token string
}

// Session is a successful login.
type Session struct {
	User  identity.User
	Token string
}

// Register creates an identity and issues its first token.
//
// An existing email resolves to ErrAlreadyRegistered when the password
// matches the stored hash and to ErrEmailTaken otherwise. The same rule
// applies when a concurrent registration wins the insert race.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Registered, error) {
	const op = "authflow.Register"

	email := identity.NormalizeEmail(in.Email)
	if !s.oracle.IsPlausible(ctx, email) {
		s.outcome("register", "invalid_email")
		return Registered{}, invalidField("email", nil)
	}
	if err := s.hasher.Validate(in.Password); err != nil {
		s.outcome("register", "invalid_password")
		return Registered{}, invalidField("password", err)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return Registered{}, s.resolveExisting(existing, in.Password)
	case !identity.IsNotFound(err):
		s.log.Error("auth.register.lookup.fail", "err", err)
		s.outcome("register", "storage_error")
		return Registered{}, storage(op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.outcome("register", "invalid_password")
		return Registered{}, invalidField("password", err)
	}

	u, err := s.users.Insert(ctx, identity.NewUser{
		DisplayName:  in.Name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if identity.IsConflict(err) {
			winner, ferr := s.users.FindByEmail(ctx, email)
			if ferr != nil {
				s.outcome("register", "email_taken")
				return Registered{}, ErrEmailTaken
			}
			return Registered{}, s.resolveExisting(winner, in.Password)
		}
		s.log.Error("auth.register.insert.fail", "err", err)
		s.outcome("register", "storage_error")
		return Registered{}, storage(op, err)
	}

	tok, err := s.tokens.Issue(u.ID, s.ttlOr(in.TTL))
	if err != nil {
		s.outcome("register", "issue_error")
		return Registered{}, fmt.Errorf("%s: issue token: %w", op, err)
	}

	s.log.Info("auth.register.ok", "user_id", u.ID)
	s.outcome("register", "ok")
	return Registered{User: u, Token: tok}, nil
}

func (s *Service) resolveExisting(u identity.User, plaintext string) error {
	if s.hasher.Matches(u.PasswordHash, plaintext) {
		s.outcome("register", "already_registered")
		return ErrAlreadyRegistered
	}
	s.outcome("register", "email_taken")
	return ErrEmailTaken
}

// Login checks credentials and issues a token with ttl (or the default).
func (s *Service) Login(ctx context.Context, email, plaintext string, ttl time.Duration) (Session, error) {
	const op = "authflow.Login"

	email = identity.NormalizeEmail(email)
	if email == "" {
		s.outcome("login", "invalid_request")
		return Session{}, invalidField("credentials", nil)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when user is missing.
			if s.dummyHash != "" {
				_ = s.hasher.Matches(s.dummyHash, plaintext)
			}
			s.outcome("login", "no_such_user")
			return Session{}, ErrNoSuchUser
		}
		s.log.Error("auth.login.lookup.fail", "err", err)
		s.outcome("login", "storage_error")
		return Session{}, storage(op, err)
	}

	if !s.hasher.Matches(u.PasswordHash, plaintext) {
		s.outcome("login", "wrong_password")
		return Session{}, ErrWrongPassword
	}

	tok, err := s.tokens.Issue(u.ID, s.ttlOr(ttl))
	if err != nil {
		s.outcome("login", "issue_error")
		return Session{}, fmt.Errorf("%s: issue token: %w", op, err)
	}

	s.outcome("login", "ok")
	return Session{User: u, Token: tok}, nil
}

// Logout revokes tok. The token must currently verify: a missing, invalid,
// expired or already revoked token is returned as the gate's rejection.
func (s *Service) Logout(ctx context.Context, tok string) (identity.User, error) {
	u, err := s.verifier.Verify(ctx, tok)
	if err != nil {
		if rej, ok := session.IsRejection(err); ok {
			s.outcome("logout", rej.Code())
		} else {
			s.outcome("logout", "storage_error")
		}
		return identity.User{}, err
	}

	if err := s.revoked.Revoke(ctx, strings.TrimSpace(tok)); err != nil {
		if errors.Is(err, session.ErrAlreadyRevoked) {
			// A concurrent logout of the same token won.
			s.outcome("logout", "revoked_token")
			return identity.User{}, session.Rejection{Reason: session.ErrRevokedToken}
		}
		s.log.Error("auth.logout.revoke.fail", "err", err, "user_id", u.ID, "token_fp", token.Fingerprint(tok))
		s.outcome("logout", "revoke_failed")
		return identity.User{}, fmt.Errorf("%w: %w", ErrRevokeFailed, err)
	}

	s.outcome("logout", "ok")
	return u, nil
}

// ChangePassword replaces the password of userID after a policy check.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	const op = "authflow.ChangePassword"

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if isPolicyError(err) {
			s.outcome("change_password", "invalid_password")
			return invalidField("new_password", err)
		}
		return fmt.Errorf("%s: hash: %w", op, err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if identity.IsNotFound(err) {
			s.outcome("change_password", "no_such_user")
			return ErrNoSuchUser
		}
		s.log.Error("auth.change_password.fail", "err", err, "user_id", userID)
		s.outcome("change_password", "storage_error")
		return storage(op, err)
	}

	s.outcome("change_password", "ok")
	return nil
}

// CreateAdmin seeds an identity with the admin flag. Any existing identity
// with the same email yields ErrEmailTaken.
func (s *Service) CreateAdmin(ctx context.Context, name, email, plaintext string) (identity.User, error) {
	const op = "authflow.CreateAdmin"

	email = identity.NormalizeEmail(email)
	if !s.oracle.IsPlausible(ctx, email) {
		return identity.User{}, invalidField("email", nil)
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		if isPolicyError(err) {
			return identity.User{}, invalidField("password", err)
		}
		return identity.User{}, fmt.Errorf("%s: hash: %w", op, err)
	}

	u, err := s.users.Insert(ctx, identity.NewUser{
		DisplayName:  name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		if identity.IsConflict(err) {
			return identity.User{}, ErrEmailTaken
		}
		return identity.User{}, storage(op, err)
	}

	s.log.Info("auth.admin.created", "user_id", u.ID)
	s.outcome("create_admin", "ok")
	return u, nil
}

func (s *Service) ttlOr(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return s.ttl
}

func (s *Service) outcome(op, outcome string) {
	s.metrics.AuthOutcome(op, outcome)
}

func isPolicyError(err error) bool {
	return errors.Is(err, password.ErrPasswordBlank) ||
		errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword)
}

var (
	_ Hasher   = password.Config{}
	_ Issuer   = (*token.Codec)(nil)
	_ Verifier = (*session.Gate)(nil)
)
