package http

import (
	"net/http"

	"github.com/aussiebroadwan/portal/internal/portal/authz"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

type LogoutHandler struct {
	Sessions   *session.Manager
	SignInPath string
}

// ServeHTTP ends the session.
//
//	@Summary		Sign out
//	@Description	Clears the session and the legacy token cookie. Form posts are redirected to the sign-in page.
//	@Tags			Auth
//	@Success		204	"Signed out"
//	@Success		303	"Form post redirected to sign-in"
//	@Router			/api/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.End(w, r); err != nil {
		// cookies are cleared regardless; only server-side state is stale
		slogx.FromContext(r.Context()).Warn("failed to delete session", "err", err)
	}

	httpx.NoCache(w)
	if httpx.IsForm(r) {
		target := h.SignInPath
		if target == "" {
			target = authz.DefaultSignInPath
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
