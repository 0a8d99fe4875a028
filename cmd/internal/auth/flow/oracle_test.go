package authflow

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntaxOracle(t *testing.T) {
	o := NewSyntaxOracle()
	ctx := context.Background()

	cases := map[string]bool{
		"a@x.com":           true,
		"first.last@sub.io": true,
		"":                  false,
		"not-an-email":      false,
		"@x.com":            false,
		"a@":                false,
		"spaces in@x.com":   false,
	}
	for in, want := range cases {
		assert.Equal(t, want, o.IsPlausible(ctx, in), "email=%q", in)
	}
}

func TestAllowAllOracle(t *testing.T) {
	assert.True(t, AllowAllOracle{}.IsPlausible(context.Background(), "anything"))
	assert.False(t, AllowAllOracle{}.IsPlausible(context.Background(), " "))
}

func TestHTTPOracle(t *testing.T) {
	var gotKey, gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		gotEmail = r.URL.Query().Get("email")
		w.Header().Set("Content-Type", "application/json")
		switch gotEmail {
		case "good@x.com":
			_, _ = w.Write([]byte(`{"status":"valid"}`))
		case "boom@x.com":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"status":"invalid"}`))
		}
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewHTTPOracle(srv.URL+"/v2/validate", "k-123", srv.Client(), log)
	ctx := context.Background()

	assert.True(t, o.IsPlausible(ctx, "good@x.com"))
	assert.Equal(t, "k-123", gotKey)
	assert.Equal(t, "good@x.com", gotEmail)

	assert.False(t, o.IsPlausible(ctx, "bad@x.com"))
	assert.False(t, o.IsPlausible(ctx, "boom@x.com"))

	// Syntactically invalid addresses never reach the service.
	gotEmail = ""
	assert.False(t, o.IsPlausible(ctx, "nope"))
	assert.Empty(t, gotEmail)
}

func TestHTTPOracle_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o := NewHTTPOracle(url, "k", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, o.IsPlausible(context.Background(), "good@x.com"))
}
