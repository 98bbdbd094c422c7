package http_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/internal/portal/authz"
	portalhttp "github.com/aussiebroadwan/portal/internal/portal/http"
	"github.com/aussiebroadwan/portal/internal/portal/mocks"
	"github.com/aussiebroadwan/portal/internal/portal/service"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return epoch }

type fixture struct {
	router   *portalhttp.Router
	identity *mocks.MockIdentityClient
	sessions *session.Manager
	metrics  *portalhttp.Metrics
}

type option func(*portalhttp.Router)

func withUpstream(u *url.URL) option {
	return func(r *portalhttp.Router) { r.Upstream = u }
}

func withProbe(p *service.UpstreamProbe) option {
	return func(r *portalhttp.Router) { r.Probe = p }
}

// newFixture wires a router the way the app does, with a mocked identity
// service and a clock frozen at epoch.
func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()

	ident := mocks.NewMockIdentityClient(gomock.NewController(t))

	sealer, err := cryptox.NewSealer([]byte("0123456789abcdef0123456789abcdef"), "session")
	require.NoError(t, err)
	store := session.NewCookieStore(session.DefaultCookieName, sealer, false)
	store.Now = fixedNow

	sessions := &session.Manager{
		Store:          store,
		Legacy:         &session.LegacyCookie{Now: fixedNow},
		LegacyFallback: true,
		Now:            fixedNow,
	}

	locales, err := authz.NewLocales([]string{"en", "de"}, "en")
	require.NoError(t, err)

	metrics := portalhttp.NewMetrics()
	tokens := &service.TokenValidator{Identity: ident, Now: fixedNow}

	r := portalhttp.NewRouter("test", slog.New(slog.DiscardHandler))
	r.LoginService = service.NewLoginService(ident, tokens, false)
	r.Sessions = sessions
	r.Metrics = metrics
	r.SignInPath = authz.DefaultSignInPath
	r.Gatekeeper = &authz.Gatekeeper{
		Policy:     authz.DefaultPolicy(),
		Locales:    locales,
		Sessions:   sessions,
		SignInPath: authz.DefaultSignInPath,
		Recorder:   metrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ApplyRoutes()

	return &fixture{router: r, identity: ident, sessions: sessions, metrics: metrics}
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("issuer-key"))
	require.NoError(t, err)
	return raw
}

func tokenFor(t *testing.T, sub, role string) string {
	t.Helper()
	return sign(t, jwt.MapClaims{
		"sub":   sub,
		"name":  "Casey",
		"role":  role,
		"email": "casey@example.com",
		"iat":   float64(epoch.Unix()),
		"exp":   float64(epoch.Add(time.Hour).Unix()),
	})
}

// carry builds a follow-up request holding the live cookies set on rec.
func carry(rec *httptest.ResponseRecorder, method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
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
