package authflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EmailOracle decides whether an address is worth registering.
type EmailOracle interface {
	IsPlausible(ctx context.Context, email string) bool
}

// AllowAllOracle accepts every non-blank address.
type AllowAllOracle struct{}

func (AllowAllOracle) IsPlausible(_ context.Context, email string) bool {
	return strings.TrimSpace(email) != ""
}

// SyntaxOracle accepts addresses that pass the validator "email" rule.
type SyntaxOracle struct {
	validate *validator.Validate
}

// NewSyntaxOracle returns a SyntaxOracle with its own validator instance.
func NewSyntaxOracle() *SyntaxOracle {
	return &SyntaxOracle{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (o *SyntaxOracle) IsPlausible(_ context.Context, email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return false
	}
	return o.validate.Var(email, "required,email") == nil
}

// HTTPOracle asks a remote verification service about an address.
//
// The service is called as GET <endpoint>?api_key=<key>&email=<email> and must
// answer {"status":"valid"} for a deliverable address. Any transport error,
// non-200 answer or other status counts as not plausible.
type HTTPOracle struct {
	endpoint string
	apiKey   string
	client   *http.Client
	syntax   *SyntaxOracle
	log      *slog.Logger
}

// NewHTTPOracle builds an HTTPOracle. A nil client gets a 5s timeout.
func NewHTTPOracle(endpoint, apiKey string, client *http.Client, log *slog.Logger) *HTTPOracle {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPOracle{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   apiKey,
		client:   client,
		syntax:   NewSyntaxOracle(),
		log:      log,
	}
}

type oracleResponse struct {
	Status string `json:"status"`
}

func (o *HTTPOracle) IsPlausible(ctx context.Context, email string) bool {
	// Skip the round trip for addresses that cannot be valid.
	if !o.syntax.IsPlausible(ctx, email) {
		return false
	}

	u, err := url.Parse(o.endpoint)
	if err != nil {
		o.log.Error("auth.email_oracle.config.fail", "err", err)
		return false
	}
	q := u.Query()
	q.Set("api_key", o.apiKey)
	q.Set("email", strings.TrimSpace(email))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		o.log.Error("auth.email_oracle.request.fail", "err", err)
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		o.log.Warn("auth.email_oracle.call.fail", "err", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		o.log.Warn("auth.email_oracle.status", "status", resp.StatusCode)
		return false
	}

	var out oracleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		o.log.Warn("auth.email_oracle.decode.fail", "err", err)
		return false
	}
	return strings.EqualFold(strings.TrimSpace(out.Status), "valid")
}

var (
	_ EmailOracle = AllowAllOracle{}
	_ EmailOracle = (*SyntaxOracle)(nil)
	_ EmailOracle = (*HTTPOracle)(nil)
)
