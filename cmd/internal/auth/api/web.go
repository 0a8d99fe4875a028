package authapi

import (
	"net/http"
	"strings"
	"time"

	"marquee/cmd/internal/auth/session"
)

func (h *Handler) usesCookieTransport() bool {
	return h != nil && h.sessCfg.Transport == session.TransportCookie
}

// setAuthCookie stores tok in the session cookie when the gate reads cookies.
func (h *Handler) setAuthCookie(w http.ResponseWriter, tok string, exp time.Time) {
	if !h.usesCookieTransport() || w == nil || strings.TrimSpace(tok) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessCfg.CookieName,
		Value:    tok,
		Path:     h.sessCfg.CookiePath,
		Domain:   h.sessCfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.sessCfg.CookieSecure,
		SameSite: h.sessCfg.CookieSameSite,
	})
}

func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	if !h.usesCookieTransport() || w == nil || strings.TrimSpace(h.sessCfg.CookieName) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessCfg.CookieName,
		Value:    "",
		Path:     h.sessCfg.CookiePath,
		Domain:   h.sessCfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.sessCfg.CookieSecure,
		SameSite: h.sessCfg.CookieSameSite,
	})
}
