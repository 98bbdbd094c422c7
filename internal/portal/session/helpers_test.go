package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/internal/portal/domain"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source shared by a store and a manager.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("issuer-key"))
	require.NoError(t, err)
	return raw
}

func driverToken(t *testing.T, exp time.Time) (domain.User, jwtx.Claims) {
	t.Helper()
	raw := sign(t, jwt.MapClaims{
		"sub":  "42",
		"name": "Dana",
		"role": "driver",
		"iat":  float64(epoch.Unix()),
		"exp":  float64(exp.Unix()),
	})
	claims, err := jwtx.Decode(raw)
	require.NoError(t, err)
	return domain.User{ID: claims.SubjectID, Name: claims.DisplayName, Role: claims.Role, Token: raw}, claims
}

func ptr[T any](v T) *T { return &v }

func newCookieStore(t *testing.T, clk *clock) *session.CookieStore {
	t.Helper()
	sealer, err := cryptox.NewSealer([]byte(testSecret), "session")
	require.NoError(t, err)
	store := session.NewCookieStore(session.DefaultCookieName, sealer, false)
	store.Now = clk.Now
	return store
}

// carry builds a follow-up request holding the cookies set on rec.
func carry(rec *httptest.ResponseRecorder, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func mustSealer(t *testing.T, secret string) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer([]byte(secret), "session")
	require.NoError(t, err)
	return s
}
