package session

import (
	"context"
	"net/http"
	"time"
)

// Store persists sessions between requests.
type Store interface {
	// Load returns the request's session or ErrNoSession.
	Load(r *http.Request) (*Session, error)

	// Save writes s and sets whatever cookie is needed to find it again.
	Save(w http.ResponseWriter, r *http.Request, s *Session) error

	// Clear removes the session and expires its cookie.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Pinger is implemented by stores with a backend worth checking in /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CookieName returns the session cookie name, with the __Secure- prefix
// browsers require for Secure-only cookies in production.
func CookieName(base string, secure bool) string {
	if secure {
		return "__Secure-" + base
	}
	return base
}

func writeCookie(w http.ResponseWriter, name, value string, secure bool, expires, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   max(int(expires.Sub(now).Seconds()), 1),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func expireCookie(w http.ResponseWriter, name string, secure bool, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
