package httpx_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(t *testing.T, h http.Handler, target, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFormFieldKeyExtractor(t *testing.T) {
	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?username=Alice", nil)
		require.Equal(t, "alice", httpx.FormFieldKeyExtractor("username")(req))
	})

	t.Run("urlencoded body", func(t *testing.T) {
		form := url.Values{"username": {"bob"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		require.Equal(t, "bob", httpx.FormFieldKeyExtractor("username")(req))
		require.Equal(t, "bob", req.PostFormValue("username"), "form must stay readable downstream")
	})

	t.Run("json body", func(t *testing.T) {
		body := `{"username":" Carol ","password":"pw"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		require.Equal(t, "carol", httpx.FormFieldKeyExtractor("username")(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest), "body must stay readable downstream")
	})

	t.Run("json body without the field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"pw"}`))
		req.Header.Set("Content-Type", "application/json")
		require.Empty(t, httpx.FormFieldKeyExtractor("username")(req))
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.Empty(t, httpx.FormFieldKeyExtractor("username")(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("username"))

	req := httptest.NewRequest(http.MethodGet, "/?username=alice", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice", extract(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(req))
}

func TestUserIDKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, httpx.UserIDKeyExtractor(req))

	req = req.WithContext(httpx.WithUserID(req.Context(), "u-1"))
	require.Equal(t, "u-1", httpx.UserIDKeyExtractor(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows burst then blocks", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler())

		for i := range 3 {
			require.Equal(t, http.StatusOK, hit(t, h, "/", "192.168.1.1:1").Code, "request %d", i+1)
		}

		rec := hit(t, h, "/", "192.168.1.1:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "rate_limited", body["error"])
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitByIP(cfg)(okHandler())

		require.Equal(t, http.StatusOK, hit(t, h, "/", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(t, h, "/", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusOK, hit(t, h, "/", "10.0.0.2:1").Code)
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, hit(t, h, "/", "10.0.0.1:1").Code)
		}
	})

	t.Run("address plus username", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
		h := httpx.RateLimitByIPAndFormField(cfg, "username")(okHandler())

		for range 2 {
			require.Equal(t, http.StatusOK, hit(t, h, "/?username=alice", "10.0.0.1:1").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, hit(t, h, "/?username=alice", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusOK, hit(t, h, "/?username=bob", "10.0.0.1:1").Code)
	})
}

func TestLimiter(t *testing.T) {
	l := httpx.NewLimiter(httpx.RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, Burst: 1})

	ok, delay := l.Allow("a")
	require.True(t, ok)
	require.Zero(t, delay)

	ok, delay = l.Allow("a")
	require.False(t, ok)
	require.Greater(t, delay, time.Duration(0))
	require.LessOrEqual(t, delay, time.Second)

	ok, _ = l.Allow("b")
	require.True(t, ok)
	require.Equal(t, 2, l.Keys())
}

func TestRateLimitProfiles(t *testing.T) {
	for name, cfg := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
		"public":   httpx.PublicLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.ParseRateLimitFromEnv("PORTALTEST", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_PORTALTEST_REQUESTS", "200")
		t.Setenv("RATELIMIT_PORTALTEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_PORTALTEST_BURST", "250")

		cfg := httpx.ParseRateLimitFromEnv("PORTALTEST", def)
		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}, cfg)
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		t.Setenv("RATELIMIT_PORTALTEST_REQUESTS", "invalid")
		t.Setenv("RATELIMIT_PORTALTEST_WINDOW_SEC", "-10")
		t.Setenv("RATELIMIT_PORTALTEST_BURST", "0")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("PORTALTEST", def))
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000}
	h := httpx.RateLimitByIP(cfg)(okHandler())

	for i := 0; b.Loop(); i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
