package authz

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// DefaultSignInPath is where page requests without a usable session go.
const DefaultSignInPath = "/auth/signin"

// Resolver loads the session for a request. See session.Manager.
type Resolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (*session.Session, error)
}

// Recorder observes every decision, e.g. for metrics.
type Recorder interface {
	RecordDecision(d Decision)
}

// Gatekeeper runs in front of every route. It never fails a request with an
// internal error: each request ends in a pass-through, a redirect or a
// JSON 403.
type Gatekeeper struct {
	Policy     *Policy
	Locales    *Locales
	Sessions   Resolver
	SignInPath string
	Recorder   Recorder
}

func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		p := r.URL.Path

		// A leading locale is always stripped before policy matching. The
		// baseline redirect only applies to page paths without one.
		locale, stripped, baseline := "", p, ""
		if g.Locales != nil {
			locale, stripped = g.Locales.Strip(p)
			if locale == "" && !g.Locales.Excluded(p) {
				locale = g.Locales.Negotiate(r)
				baseline = "/" + locale + p
				if r.URL.RawQuery != "" {
					baseline += "?" + r.URL.RawQuery
				}
			}
		}

		sess, err := g.Sessions.Resolve(w, r)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				log.Warn("session lookup failed, continuing unauthenticated", "err", err)
			}
			sess = nil
		}

		d := g.Policy.Decide(stripped, r.URL.RawQuery, sess)
		if g.Recorder != nil {
			g.Recorder.RecordDecision(d)
		}
		log.Debug("authz decision",
			"outcome", d.Outcome.String(),
			"reason", d.Reason,
			"group", d.Group,
			"locale_path", stripped,
		)

		switch d.Outcome {
		case Reject:
			d.Err.WriteError(w)

		case SignIn:
			http.Redirect(w, r, SignInURL(g.signInPath(), stripped), http.StatusTemporaryRedirect)

		case Redirect:
			target := d.Location
			if locale != "" {
				target = "/" + locale + target
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)

		default:
			if baseline != "" {
				http.Redirect(w, r, baseline, http.StatusTemporaryRedirect)
				return
			}

			ctx := r.Context()
			if sess != nil {
				ctx = session.NewContext(ctx, sess)
				if sess.Authenticated() {
					ctx = httpx.WithUserID(ctx, sess.UserID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

func (g *Gatekeeper) signInPath() string {
	if g.SignInPath != "" {
		return g.SignInPath
	}
	return DefaultSignInPath
}
