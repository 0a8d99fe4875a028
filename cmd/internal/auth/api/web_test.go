package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/cmd/internal/auth/session"
)

func TestAuthCookie_OnlyInCookieMode(t *testing.T) {
	cfg := session.DefaultConfig()
	h := &Handler{sessCfg: cfg}

	rr := httptest.NewRecorder()
	h.setAuthCookie(rr, "tok", time.Now().Add(time.Hour))
	h.clearAuthCookie(rr)
	assert.Empty(t, rr.Result().Cookies())
}

func TestSetAuthCookie(t *testing.T) {
	cfg := session.DefaultConfig()
	cfg.Transport = session.TransportCookie
	cfg.CookieName = "mq_session"
	cfg.CookieDomain = "example.test"
	cfg.CookieSameSite = http.SameSiteLaxMode
	h := &Handler{sessCfg: cfg}

	rr := httptest.NewRecorder()
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.setAuthCookie(rr, "tok-123", exp)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "mq_session", c.Name)
	assert.Equal(t, "tok-123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, "example.test", c.Domain)
	assert.WithinDuration(t, exp, c.Expires, time.Second)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rr = httptest.NewRecorder()
	h.setAuthCookie(rr, "  ", exp)
	assert.Empty(t, rr.Result().Cookies())
}

func TestClearAuthCookie(t *testing.T) {
	cfg := session.DefaultConfig()
	cfg.Transport = session.TransportCookie
	h := &Handler{sessCfg: cfg}

	rr := httptest.NewRecorder()
	h.clearAuthCookie(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
