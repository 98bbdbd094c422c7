package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/portal/internal/portal/authz"
	httpapi "github.com/aussiebroadwan/portal/internal/portal/http"
	"github.com/aussiebroadwan/portal/internal/portal/service"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application is the session gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	identity *authsdk.SDKClient
	redis    *redis.Client
	sessions *session.Manager
	probe    *service.UpstreamProbe
	metrics  *httpapi.Metrics

	server *http.Server
	router *httpapi.Router
}

// New builds the application from cfg. Nothing is started.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		identity: authsdk.NewSDKClient(cfg.VerifyAPIURL),
		metrics:  httpapi.NewMetrics(),
	}

	if err := app.initSessions(); err != nil {
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		return nil, err
	}
	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	app.logger.Info("portal starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"session_store", app.cfg.SessionStore,
		"identity", app.cfg.VerifyAPIURL,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error { return app.probe.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops the server and releases the session backend.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			return err
		}
	}

	app.logger.Info("portal stopped")
	return nil
}

func (app *Application) initSessions() error {
	secure := app.cfg.Secure()
	name := session.CookieName(app.cfg.SessionCookieName, secure)

	var store session.Store
	switch app.cfg.SessionStore {
	case StoreRedis:
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.Redis.Addr,
			Password: app.cfg.Redis.Password,
			DB:       app.cfg.Redis.DB,
		})
		store = session.NewRedisStore(app.redis, name, secure)
		app.logger.Info("using redis session store", "addr", app.cfg.Redis.Addr)

	default:
		secret := app.cfg.SessionSecret
		if secret == "" {
			generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return fmt.Errorf("failed to generate session secret: %w", err)
			}
			secret = generated
			app.logger.Warn("SESSION_SECRET not set, using a per-process secret; sessions will not survive a restart")
		}
		sealer, err := cryptox.NewSealer([]byte(secret), "portal-session")
		if err != nil {
			return fmt.Errorf("failed to initialize session sealer: %w", err)
		}
		store = session.NewCookieStore(name, sealer, secure)
	}

	app.sessions = &session.Manager{
		Store:          store,
		Legacy:         &session.LegacyCookie{Secure: secure},
		LegacyFallback: app.cfg.LegacyCookieAuth,
	}
	return nil
}

func (app *Application) initHTTP() error {
	tokens := &service.TokenValidator{Identity: app.identity}

	app.probe = &service.UpstreamProbe{
		Identity: app.identity,
		Logger:   app.logger,
		Interval: app.cfg.ProbeInterval,
		Observer: app.metrics.ObserveUpstream,
	}

	locales, err := authz.NewLocales(app.cfg.Locales, app.cfg.DefaultLocale)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(BuildVersion, app.logger)
	router.LoginService = service.NewLoginService(app.identity, tokens, app.cfg.RemoteTokenValidation)
	router.Sessions = app.sessions
	router.Probe = app.probe
	router.Metrics = app.metrics
	router.SignInPath = app.cfg.SignInPath
	router.Gatekeeper = &authz.Gatekeeper{
		Policy:     authz.DefaultPolicy(),
		Locales:    locales,
		Sessions:   app.sessions,
		SignInPath: app.cfg.SignInPath,
		Recorder:   app.metrics,
	}
	if app.cfg.UpstreamURL != "" {
		u, err := url.Parse(app.cfg.UpstreamURL)
		if err != nil {
			return fmt.Errorf("invalid APP_UPSTREAM_URL: %w", err)
		}
		router.Upstream = u
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
