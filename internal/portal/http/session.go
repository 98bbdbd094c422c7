package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

type SessionHandler struct {
	Sessions *session.Manager
}

// ServeHTTP returns the current session.
//
//	@Summary		Current session
//	@Description	Returns the session object, or {} when signed out. An expired session is still returned, with
//	@Description	error set to "TokenExpired".
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	session.View	"Session (or empty object)"
//	@Failure		503	{object}	authsdk.ErrorResponse	"Session store unavailable"
//	@Router			/api/auth/session [get].
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		var err error
		sess, err = h.Sessions.Resolve(w, r)
		switch {
		case errors.Is(err, session.ErrNoSession):
			httpx.WriteJSON(w, http.StatusOK, struct{}{})
			return
		case err != nil:
			slogx.FromContext(r.Context()).Error("session lookup failed", "err", err)
			authsdk.ErrServiceUnavailable.WriteError(w)
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, sess.View())
}
