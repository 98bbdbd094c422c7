package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portal/pkg/jwtx"
)

// LegacyCookieName is the direct token cookie older clients authenticate
// with.
const LegacyCookieName = "token"

const (
	legacyShortAge = 24 * time.Hour
	legacyLongAge  = 7 * 24 * time.Hour
)

// LegacyCookie writes and reads the raw token cookie set alongside the
// session. It is a separate representation from Store: the cookie holds the
// signed token itself, and reading it only decodes claims.
type LegacyCookie struct {
	Secure bool
	Now    func() time.Time
}

// Set stores token for 7 days when keepSignedIn, otherwise 1 day.
func (l *LegacyCookie) Set(w http.ResponseWriter, token string, keepSignedIn bool) {
	age := legacyShortAge
	if keepSignedIn {
		age = legacyLongAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LegacyCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
		HttpOnly: true,
		Secure:   l.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (l *LegacyCookie) Clear(w http.ResponseWriter) {
	expireCookie(w, LegacyCookieName, l.Secure, http.SameSiteStrictMode)
}

// Load decodes the token cookie into a read-only session. Expiry is left to
// the caller.
func (l *LegacyCookie) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(LegacyCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	claims, err := jwtx.Decode(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	issued := l.now()
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}

	return &Session{
		UserID:         claims.SubjectID,
		DisplayName:    claims.DisplayName,
		Role:           claims.Role,
		Email:          claims.Email,
		AccessToken:    cookie.Value,
		TokenExpiresAt: claims.ExpiresAtUnix(),
		IssuedLocally:  issued,
		Source:         SourceLegacy,
	}, nil
}

func (l *LegacyCookie) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
