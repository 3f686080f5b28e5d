package authapi

import (
	"net/http"
	"strings"
	"time"

	"shortly/cmd/internal/auth/session"
)

// setSessionCookies binds an issued session to the browser: the access token,
// the refresh token and the session id travel as separate cookies. The
// refresh and session cookies live as long as the refresh grant when the user
// asked to be remembered, and are session-only otherwise.
func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued) {
	accessMaxAge := int(time.Until(issued.AccessExp).Seconds())
	if accessMaxAge < 1 {
		accessMaxAge = 1
	}
	h.setCookie(w, h.cfg.AccessCookieName, issued.AccessToken, accessMaxAge, issued.AccessExp)

	if issued.Remember {
		maxAge := int(time.Until(issued.RefreshExp).Seconds())
		if maxAge < 1 {
			maxAge = 1
		}
		h.setCookie(w, h.cfg.RefreshCookieName, issued.RefreshToken, maxAge, issued.RefreshExp)
		h.setCookie(w, h.cfg.SessionCookieName, issued.SessionID, maxAge, issued.RefreshExp)
		return
	}

	// Session-only cookies: gone when the browser closes.
	h.setCookie(w, h.cfg.RefreshCookieName, issued.RefreshToken, 0, time.Time{})
	h.setCookie(w, h.cfg.SessionCookieName, issued.SessionID, 0, time.Time{})
}

// clearSessionCookies expires all three auth cookies. Called on logout and on
// every authentication failure so a browser never retries stale credentials.
func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.AccessCookieName)
	h.expireCookie(w, h.cfg.RefreshCookieName)
	h.expireCookie(w, h.cfg.SessionCookieName)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge int, exp time.Time) {
	if w == nil || strings.TrimSpace(name) == "" {
		return
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	}
	if !exp.IsZero() {
		c.Expires = exp
	}
	http.SetCookie(w, c)
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if w == nil || strings.TrimSpace(name) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func cookieValue(r *http.Request, name string) string {
	if r == nil || name == "" {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
