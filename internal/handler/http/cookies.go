package http

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names carrying the session tokens.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieConfig controls the attributes of the session cookies. Max-Age of
// each cookie matches the lifetime of the token it carries.
type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ParseSameSite maps "strict", "none" and "lax" to http.SameSite. Anything
// else is treated as lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string) {
	c.set(w, AccessTokenCookie, token, c.AccessTTL)
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string) {
	c.set(w, RefreshTokenCookie, token, c.RefreshTTL)
}

func (c CookieConfig) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
