package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portal/internal/portal/domain"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// Manager drives the session state machine:
//
//	Unauthenticated -> Active      Begin
//	Active          -> Expired     Resolve, once the token is past expiry
//	Active/Expired  -> (none)      End, or the cookie ceiling
type Manager struct {
	Store  Store
	Legacy *LegacyCookie

	// LegacyFallback lets Resolve read the legacy token cookie when the
	// store has no session.
	LegacyFallback bool

	MaxAge time.Duration
	Now    func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) maxAge() time.Duration {
	if m.MaxAge > 0 {
		return m.MaxAge
	}
	return MaxAge
}

// Begin starts an Active session for user and sets the legacy token cookie.
// Nothing is written if the session cannot be saved.
func (m *Manager) Begin(w http.ResponseWriter, r *http.Request, user domain.User, claims jwtx.Claims, keepSignedIn bool) (*Session, error) {
	now := m.now()
	s := &Session{
		UserID:         user.ID,
		DisplayName:    user.Name,
		Role:           user.Role,
		Email:          user.Email,
		AccessToken:    user.Token,
		TokenExpiresAt: claims.ExpiresAtUnix(),
		IssuedLocally:  now,
		ExpiresAt:      now.Add(m.maxAge()),
		Source:         SourceStore,
	}
	s.Refresh(now)

	if err := m.Store.Save(w, r, s); err != nil {
		return nil, err
	}
	if m.Legacy != nil {
		m.Legacy.Set(w, user.Token, keepSignedIn)
	}
	return s, nil
}

// Resolve loads the request's session and re-checks expiry. A newly expired
// store session is written back so the flag survives. Unreadable cookies are
// treated as no session. ErrNoSession is returned when there is nothing to
// resolve; other errors come from the store backend.
//
// w may be nil, in which case nothing is written back.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) (*Session, error) {
	log := slogx.FromContext(r.Context())

	s, err := m.Store.Load(r)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrInvalidSession):
		if errors.Is(err, ErrInvalidSession) {
			log.Debug("discarding unreadable session cookie", "err", err)
		}
		s, err = m.loadLegacy(r)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if s.Refresh(m.now()) {
		log.Info("session token expired", "user_id", s.UserID, "source", s.Source)
		if s.Source == SourceStore && w != nil {
			if err := m.Store.Save(w, r, s); err != nil {
				log.Warn("failed to persist expired flag", "err", err)
			}
		}
	}
	return s, nil
}

func (m *Manager) loadLegacy(r *http.Request) (*Session, error) {
	if !m.LegacyFallback || m.Legacy == nil {
		return nil, ErrNoSession
	}
	s, err := m.Legacy.Load(r)
	if err != nil {
		if errors.Is(err, ErrInvalidSession) {
			slogx.FromContext(r.Context()).Debug("ignoring unreadable legacy token cookie", "err", err)
		}
		return nil, ErrNoSession
	}
	return s, nil
}

// End clears both the session and the legacy token cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	if m.Legacy != nil {
		m.Legacy.Clear(w)
	}
	return m.Store.Clear(w, r)
}
