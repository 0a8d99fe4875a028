package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"marquee/cmd/internal/auth/flow"
	"marquee/cmd/internal/auth/session"
	"marquee/cmd/internal/httpjson"

	"github.com/go-playground/validator/v10"
)

// Handler wires HTTP auth endpoints to the auth flows and the session gate.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	sessCfg session.Config

	flow *authflow.Service
	gate *session.Gate

	audit       AuditExecer
	auditSchema string

	validate *validator.Validate
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAudit enables audit rows in <schema>.audit_log.
func WithAudit(db AuditExecer, schema string) HandlerOption {
	return func(h *Handler) {
		if h == nil || db == nil {
			return
		}
		h.audit = db
		if s := strings.TrimSpace(schema); s != "" {
			h.auditSchema = s
		}
	}
}

// WithClock overrides the time source used for cookie expiry.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *authflow.Service, gate *session.Gate, sessCfg session.Config, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil || gate == nil {
		return nil, errors.New("auth: handler requires flow service and gate")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	h := &Handler{
		log:         log,
		cfg:         cfg,
		sessCfg:     sessCfg,
		flow:        svc,
		gate:        gate,
		auditSchema: "public",
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.Handle("GET /auth/status", h.gate.Require(http.HandlerFunc(h.handleStatus)))
	mux.Handle("PUT /account/password", h.gate.Require(http.HandlerFunc(h.handleChangePassword)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.BadBody(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "name, email and password are required")
		return
	}

	ctx := r.Context()
	reg, err := h.flow.Register(ctx, authflow.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var ve *authflow.ValidationError
		switch {
		case errors.As(err, &ve) && ve.Field == "email":
			httpjson.Error(w, http.StatusBadRequest, "invalid_email", "Invalid email address.")
		case errors.Is(err, authflow.ErrValidation):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "Password does not meet requirements.")
		case errors.Is(err, authflow.ErrAlreadyRegistered):
			httpjson.Error(w, http.StatusAccepted, "already_registered", "User already exists. Please Log in.")
		case errors.Is(err, authflow.ErrEmailTaken):
			httpjson.Error(w, http.StatusConflict, "email_taken", "Email is already registered.")
		default:
			h.log.Error("auth.register.fail", "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditRegister(ctx, reg.User.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.setAuthCookie(w, reg.Token, h.now().Add(h.flow.DefaultTTL()))

	httpjson.Write(w, http.StatusCreated, authResponse{
		Status:    statusSuccess,
		Message:   "Successfully registered.",
		AuthToken: reg.Token,
		User:      toUserResponse(reg.User),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.BadBody(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	sess, err := h.flow.Login(ctx, req.Email, req.Password, 0)
	if err != nil {
		switch {
		case errors.Is(err, authflow.ErrValidation):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		case errors.Is(err, authflow.ErrNoSuchUser):
			h.auditLoginFailed(ctx, nil, ip, ua, req.Email, "not_found")
			httpjson.Error(w, http.StatusNotFound, "no_such_user", "User does not exist.")
		case errors.Is(err, authflow.ErrWrongPassword):
			h.auditLoginFailed(ctx, nil, ip, ua, req.Email, "bad_password")
			httpjson.Error(w, http.StatusUnauthorized, "wrong_password", "Incorrect password.")
		default:
			h.log.Error("auth.login.fail", "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditLoginSuccess(ctx, sess.User.ID, ip, ua)
	h.setAuthCookie(w, sess.Token, h.now().Add(h.flow.DefaultTTL()))

	httpjson.Write(w, http.StatusOK, authResponse{
		Status:    statusSuccess,
		Message:   "Successfully logged in.",
		AuthToken: sess.Token,
		User:      toUserResponse(sess.User),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.flow.Logout(ctx, h.gate.Extract(r))
	if err != nil {
		if errors.Is(err, authflow.ErrRevokeFailed) {
			httpjson.Error(w, http.StatusInternalServerError, "revoke_failed", "Logout failed. Please try again.")
			return
		}
		h.gate.WriteFailure(w, r, err)
		return
	}

	h.auditLogout(ctx, u.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.clearAuthCookie(w)

	httpjson.Write(w, http.StatusOK, messageResponse{
		Status:  statusSuccess,
		Message: "Successfully logged out",
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "reauthenticate", "Authentication required")
		return
	}
	httpjson.Write(w, http.StatusOK, statusResponse{
		Status: statusSuccess,
		Data:   toUserResponse(u),
	})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "reauthenticate", "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.BadBody(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "new_password is required")
		return
	}

	ctx := r.Context()
	if err := h.flow.ChangePassword(ctx, u.ID, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, authflow.ErrValidation):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "Password does not meet requirements.")
		case errors.Is(err, authflow.ErrNoSuchUser):
			httpjson.Error(w, http.StatusNotFound, "no_such_user", "User does not exist.")
		default:
			h.log.Error("auth.password.change.fail", "err", err, "user_id", u.ID)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditPasswordChanged(ctx, u.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	httpjson.Write(w, http.StatusOK, messageResponse{
		Status:  statusSuccess,
		Message: "Password updated.",
	})
}

// ---- helpers ----

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
