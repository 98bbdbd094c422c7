package portal_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/portal/internal/portal/app"
	portalhttp "github.com/aussiebroadwan/portal/internal/portal/http"
)

/*
 * End-to-end harness: the real gateway listening on a local port, a fake
 * identity service and a fake application server, both httptest servers.
 * The Redis variant starts redis in a container.
 */

const (
	testPassword      = "Driver123!"
	sessionCookieName = "portal.session-token"
)

// account is a user the fake identity service knows.
type account struct {
	sub, name, role string
}

var accounts = map[string]account{
	"dana":  {sub: "42", name: "Dana", role: "driver"},
	"casey": {sub: "c-1", name: "Casey", role: "customer"},
	"olive": {sub: "o-9", name: "Olive", role: "organization_admin"},
}

func tokenFor(t *testing.T, a account, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  a.sub,
		"name": a.name,
		"role": a.role,
		"iat":  float64(time.Now().Unix()),
		"exp":  float64(exp.Unix()),
	}).SignedString([]byte("identity-signing-key"))
	require.NoError(t, err)
	return raw
}

// identityServer fakes POST /login, GET /validate-token and GET /.
func identityServer(t *testing.T) *httptest.Server {
	t.Helper()
	issued := map[string]account{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Username, Password string }
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a, ok := accounts[req.Username]
		if !ok || req.Password != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid username or password"}`))
			return
		}
		token := tokenFor(t, a, time.Now().Add(time.Hour))
		issued[token] = a
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("GET /validate-token", func(w http.ResponseWriter, r *http.Request) {
		a, ok := issued[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"claims": map[string]any{"userId": a.sub, "username": a.name, "role": a.role},
		})
	})

	// handlers run one at a time; issued needs no lock
	srv := httptest.NewUnstartedServer(serialize(mux))
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func serialize(h http.Handler) http.Handler {
	sem := make(chan struct{}, 1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sem <- struct{}{}
		defer func() { <-sem }()
		h.ServeHTTP(w, r)
	})
}

// appServer fakes the application behind the gateway. It answers 200 with
// the identity headers the gateway attached.
func appServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"path":    r.URL.Path,
			"user_id": r.Header.Get(portalhttp.HeaderUserID),
			"role":    r.Header.Get(portalhttp.HeaderUserRole),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startPortal runs the gateway until the test ends and returns its base URL.
// extra overrides the environment.
func startPortal(t *testing.T, extra map[string]string) string {
	t.Helper()

	identity := identityServer(t)
	upstream := appServer(t)
	port := freePort(t)

	env := map[string]string{
		"ENV":              "dev",
		"LOG_LEVEL":        "error",
		"PORT":             fmt.Sprint(port),
		"VERIFY_API_URL":   identity.URL,
		"APP_UPSTREAM_URL": upstream.URL,
		"SESSION_SECRET":   "e2e-secret-e2e-secret-e2e-secret!",
		"LOCALES":          "en,fr,ar",
		"DEFAULT_LOCALE":   "en",
		"PROBE_INTERVAL":   "1s",
	}
	for k, v := range extra {
		env[k] = v
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	cfg.ShutdownGracePeriod = 2 * time.Second

	application, err := app.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("portal did not stop")
		}
	})

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/readyz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond, "portal never became ready")

	return baseURL
}

// browser is a cookie-keeping client that does not follow redirects.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, url string) *http.Response {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, c *http.Client, baseURL, username, password string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp, err := c.Post(baseURL+"/api/auth/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// setupRedisContainer starts redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in -short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		t.Skipf("redis container unavailable: %v", err)
	}
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}
