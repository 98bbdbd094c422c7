package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portal/pkg/cryptox"
)

// DefaultCookieName is the session cookie name before any prefix.
const DefaultCookieName = "portal.session-token"

// maxCookieBytes is the practical per-cookie limit most browsers enforce.
const maxCookieBytes = 4096

// ErrCookieTooLarge is returned by Save when the sealed session does not fit
// in one cookie.
var ErrCookieTooLarge = errors.New("session: sealed session exceeds cookie size")

// CookieStore keeps the whole session in a cookie sealed with AES-256-GCM.
type CookieStore struct {
	Name   string
	Sealer *cryptox.Sealer
	Secure bool
	Now    func() time.Time
}

func NewCookieStore(name string, sealer *cryptox.Sealer, secure bool) *CookieStore {
	return &CookieStore{
		Name:   name,
		Sealer: sealer,
		Secure: secure,
		Now:    time.Now,
	}
}

func (c *CookieStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	sealed, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	plain, err := c.Sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	// Browsers drop the cookie at MaxAge; a replayed cookie must not outlive
	// it either.
	if !s.ExpiresAt.IsZero() && c.Now().After(s.ExpiresAt) {
		return nil, ErrNoSession
	}

	s.Source = SourceStore
	return &s, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, _ *http.Request, s *Session) error {
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	sealed, err := c.Sealer.Seal(plain)
	if err != nil {
		return fmt.Errorf("failed to seal session: %w", err)
	}

	value := base64.RawURLEncoding.EncodeToString(sealed)
	if len(c.Name)+len(value) > maxCookieBytes {
		return ErrCookieTooLarge
	}

	writeCookie(w, c.Name, value, c.Secure, s.ExpiresAt, c.Now())
	return nil
}

func (c *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	expireCookie(w, c.Name, c.Secure, http.SameSiteLaxMode)
	return nil
}
