package http

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// Headers set on proxied requests. Inbound copies are always removed.
const (
	HeaderUserID   = "X-Portal-User-Id"
	HeaderUserRole = "X-Portal-User-Role"
)

// ProxyTimeout bounds how long the application server may take to start
// answering.
const ProxyTimeout = 15 * time.Second

// NewProxy forwards authorized requests to target. An authenticated session
// is passed on as a bearer token plus identity headers.
func NewProxy(target *url.URL, logger *slog.Logger) http.Handler {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: ProxyTimeout,
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del(HeaderUserID)
			pr.Out.Header.Del(HeaderUserRole)

			sess, ok := session.FromContext(pr.In.Context())
			if !ok || !sess.Authenticated() {
				return
			}
			pr.Out.Header.Set("Authorization", "Bearer "+sess.AccessToken)
			pr.Out.Header.Set(HeaderUserID, sess.UserID)
			pr.Out.Header.Set(HeaderUserRole, sess.Role)
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slogx.FromContext(r.Context()).Warn("upstream request failed", "err", err)
			authsdk.ErrServiceUnavailable.WriteError(w)
		},
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
