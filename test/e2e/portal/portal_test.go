package portal_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
)

type proxied struct {
	Path   string `json:"path"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// TestDriverJourney walks a driver from an anonymous redirect through sign-in,
// authorized pages, a forbidden API and sign-out.
func TestDriverJourney(t *testing.T) {
	baseURL := startPortal(t, nil)
	c := browser(t)

	resp := get(t, c, baseURL+"/en/drivers/dashboard")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	require.Equal(t, "/auth/signin?callbackUrl=%2Fdrivers%2Fdashboard", resp.Header.Get("Location"))

	resp = login(t, c, baseURL, "dana", testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[authsdk.LoginResult](t, resp)
	require.Equal(t, "42", result.User.ID)
	require.Equal(t, "driver", result.User.Role)

	resp = get(t, c, baseURL+"/api/auth/session")
	view := decode[session.View](t, resp)
	require.Equal(t, "42", view.UserID)
	require.Equal(t, "Dana", view.Name)
	require.NotEmpty(t, view.AccessToken)
	require.Empty(t, view.Error)

	resp = get(t, c, baseURL+"/en/drivers/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[proxied](t, resp)
	require.Equal(t, "/en/drivers/dashboard", page.Path)
	require.Equal(t, "42", page.UserID)
	require.Equal(t, "driver", page.Role)

	resp = get(t, c, baseURL+"/api/user/profile")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeForbidden, decode[authsdk.ErrorResponse](t, resp).Error)

	logout, err := c.Post(baseURL+"/api/auth/logout", "application/json", nil)
	require.NoError(t, err)
	logout.Body.Close()
	require.Equal(t, http.StatusNoContent, logout.StatusCode)

	resp = get(t, c, baseURL+"/en/drivers/dashboard")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	resp = get(t, c, baseURL+"/api/driver/jobs")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeUnauthorized, decode[authsdk.ErrorResponse](t, resp).Error)
}

func TestRejectedLoginSetsNoCookie(t *testing.T) {
	baseURL := startPortal(t, nil)
	c := browser(t)

	resp := login(t, c, baseURL, "dana", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, decode[authsdk.ErrorResponse](t, resp).Error)

	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	require.Empty(t, c.Jar.Cookies(u))
}

func TestFormLoginRedirectsToCallback(t *testing.T) {
	baseURL := startPortal(t, nil)
	c := browser(t)

	form := url.Values{
		"username":    {"casey"},
		"password":    {testPassword},
		"callbackUrl": {"/en/users/trips"},
	}
	resp, err := c.Post(baseURL+"/api/auth/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/en/users/trips", resp.Header.Get("Location"))

	resp = get(t, c, baseURL+"/en/users/trips")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "c-1", decode[proxied](t, resp).UserID)
}

func TestLegacyTokenCookie(t *testing.T) {
	baseURL := startPortal(t, nil)
	c := browser(t)

	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	c.Jar.SetCookies(u, []*http.Cookie{{
		Name:  session.LegacyCookieName,
		Value: tokenFor(t, accounts["olive"], time.Now().Add(time.Hour)),
		Path:  "/",
	}})

	resp := get(t, c, baseURL+"/api/organizations/members")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "o-9", decode[proxied](t, resp).UserID)

	// an expired legacy token reads as a signed-out user
	c.Jar.SetCookies(u, []*http.Cookie{{
		Name:  session.LegacyCookieName,
		Value: tokenFor(t, accounts["olive"], time.Now().Add(-time.Hour)),
		Path:  "/",
	}})
	resp = get(t, c, baseURL+"/api/organizations/members")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = get(t, c, baseURL+"/api/auth/session")
	require.Equal(t, session.ExpiredError, decode[session.View](t, resp).Error)
}

func TestLocaleAndPublicRoutes(t *testing.T) {
	baseURL := startPortal(t, nil)
	c := browser(t)

	req, err := http.NewRequest(http.MethodGet, baseURL+"/organizations/register", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	require.Equal(t, "/fr/organizations/register", resp.Header.Get("Location"))

	resp = get(t, c, baseURL+"/fr/organizations/register")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, c, baseURL+"/api/user/available/trips?from=syd")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRedisSessionStore(t *testing.T) {
	addr := setupRedisContainer(t)
	baseURL := startPortal(t, map[string]string{
		"SESSION_STORE": "redis",
		"REDIS_ADDR":    addr,
	})
	c := browser(t)

	resp := login(t, c, baseURL, "olive", testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	var id string
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == sessionCookieName {
			id = ck.Value
		}
	}
	require.Len(t, id, 36, "redis sessions are referenced by a UUID")

	resp = get(t, c, baseURL+"/api/auth/session")
	require.Equal(t, "o-9", decode[session.View](t, resp).UserID)

	resp = get(t, c, baseURL+"/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, resp).Checks.SessionStore)
}
