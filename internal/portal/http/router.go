package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/portal/internal/portal/authz"
	"github.com/aussiebroadwan/portal/internal/portal/service"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"

	_ "github.com/aussiebroadwan/portal/api/portal" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	LoginService *service.LoginService
	Sessions     *session.Manager
	Gatekeeper   *authz.Gatekeeper
	Probe        *service.UpstreamProbe
	Metrics      *Metrics

	// Upstream is the application server behind the gateway. When nil,
	// unmatched routes answer 404.
	Upstream *url.URL

	SignInPath string
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}
}

// ApplyRoutes registers every route and builds the middleware chain. Call it
// after the exported dependencies are set.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.Gatekeeper.Middleware,
	}

	r.registerAuth()
	r.registerSystem()
	r.registerUpstream()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Portal Session Gateway API
//	@version		0.1.0
//	@description	Session gateway in front of the portal application. Exchanges credentials with the identity service,
//	@description	keeps the resulting session in an encrypted cookie and authorizes every request by path and role.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/portal
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{
		LoginService: r.LoginService,
		Sessions:     r.Sessions,
		Metrics:      r.Metrics,
	}

	// Rate limited by IP + username to slow credential stuffing
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	logout := &LogoutHandler{Sessions: r.Sessions, SignInPath: r.SignInPath}
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	sess := &SessionHandler{Sessions: r.Sessions}
	r.Mux.Handle("GET /api/auth/session",
		httpx.Chain(sess,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes and scrapers poll often
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	var pinger session.Pinger
	if p, ok := r.Sessions.Store.(session.Pinger); ok {
		pinger = p
	}
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Probe, pinger),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}

func (r *Router) registerUpstream() {
	if r.Upstream == nil {
		r.Mux.Handle("/", http.HandlerFunc(notFound))
		return
	}

	r.Mux.Handle("/",
		httpx.Chain(NewProxy(r.Upstream, r.logger),
			httpx.RateLimitByUser(httpx.PublicLimit),
		),
	)
}
