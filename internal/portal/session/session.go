// Package session tracks a browser's authenticated session across requests.
//
// A Session is created by Manager.Begin after a successful credential
// exchange and persisted by a Store (sealed cookie or Redis). On every
// request Manager.Resolve reloads it and re-checks the token's expiry.
// Expiry is sticky: once Expired is set it stays set until logout, and the
// session is kept so callers can prompt for re-authentication without
// losing state.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/portal/pkg/jwtx"
)

// ExpiredError is the value of View.Error for an expired session.
const ExpiredError = "TokenExpired"

// MaxAge is the hard ceiling on a session cookie, independent of the token's
// own expiry.
const MaxAge = 7 * 24 * time.Hour

var (
	// ErrNoSession means the request carries no session.
	ErrNoSession = errors.New("session: no session")

	// ErrInvalidSession means a session cookie was present but could not be
	// opened or decoded.
	ErrInvalidSession = errors.New("session: invalid session")
)

// Source records where a session was read from.
type Source string

const (
	SourceStore  Source = "store"
	SourceLegacy Source = "legacy"
)

type Session struct {
	// ID is set by stores that keep state server side.
	ID string `json:"id,omitempty"`

	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"accessToken"`

	// TokenExpiresAt is the token's exp in unix seconds, nil when absent.
	TokenExpiresAt *int64 `json:"tokenExpiresAt,omitempty"`

	// IssuedLocally is when the gateway first saw this token.
	IssuedLocally time.Time `json:"issuedLocally"`

	// ExpiresAt is the cookie ceiling fixed at creation.
	ExpiresAt time.Time `json:"expiresAt"`

	Expired bool `json:"expired,omitempty"`

	Source Source `json:"-"`
}

// Refresh re-evaluates token expiry at now. It returns true when the session
// has just transitioned to expired. An expired session never becomes active
// again.
func (s *Session) Refresh(now time.Time) bool {
	if s.Expired || s.TokenExpiresAt == nil || !jwtx.IsExpiredAt(*s.TokenExpiresAt, now) {
		return false
	}
	s.Expired = true
	return true
}

// Authenticated reports whether the session may be used to authorize a
// request.
func (s *Session) Authenticated() bool {
	return s != nil && !s.Expired && s.UserID != ""
}

// ErrorCode returns ExpiredError for an expired session, otherwise "".
func (s *Session) ErrorCode() string {
	if s.Expired {
		return ExpiredError
	}
	return ""
}

// View is the externally visible session object.
type View struct {
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	Email          string    `json:"email,omitempty"`
	AccessToken    string    `json:"accessToken"`
	TokenExpiresAt *int64    `json:"tokenExpiresAt,omitempty"`
	IssuedLocally  int64     `json:"issuedLocally"`
	Expires        time.Time `json:"expires,omitzero"`
	Error          string    `json:"error,omitempty"`
}

func (s *Session) View() View {
	return View{
		UserID:         s.UserID,
		Name:           s.DisplayName,
		Role:           s.Role,
		Email:          s.Email,
		AccessToken:    s.AccessToken,
		TokenExpiresAt: s.TokenExpiresAt,
		IssuedLocally:  s.IssuedLocally.UnixMilli(),
		Expires:        s.ExpiresAt,
		Error:          s.ErrorCode(),
	}
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by the authorization middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
