package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/portal/internal/portal/authz"
	"github.com/aussiebroadwan/portal/internal/portal/service"
	"github.com/aussiebroadwan/portal/internal/portal/session"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// maxLoginBody caps the login request body.
const maxLoginBody = 64 << 10

type LoginHandler struct {
	LoginService *service.LoginService
	Sessions     *session.Manager
	Metrics      *Metrics
}

// ServeHTTP exchanges credentials for a session.
//
//	@Summary		Sign in
//	@Description	Exchanges a username and password with the identity service. On success a session cookie and the
//	@Description	legacy token cookie are set. Form posts are redirected (303) to callbackUrl when it is a relative path.
//	@Tags			Auth
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			request	body		service.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResult		"Signed in"
//	@Success		303		"Form post redirected to callbackUrl"
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation_error, invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials, malformed_token, malformed_claims, authentication_error"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_locked"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Failure		502		{object}	authsdk.ErrorResponse	"upstream_error, malformed_upstream_response"
//	@Failure		503		{object}	authsdk.ErrorResponse	"service_unavailable"
//	@Router			/api/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	req, form, err := decodeLogin(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	res, err := h.LoginService.Login(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	if _, err := h.Sessions.Begin(w, r, res.User, res.Claims, res.KeepSignedIn); err != nil {
		log.Error("failed to start session", "user_id", res.User.ID, "err", err)
		h.fail(w, authsdk.ErrInternal.Wrap(err))
		return
	}
	h.Metrics.RecordLogin("success")

	if form {
		http.Redirect(w, r, authz.SafeCallback(req.CallbackURL, "/"), http.StatusSeeOther)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResult{
		User: authsdk.UserResponse{
			ID:    res.User.ID,
			Name:  res.User.Name,
			Role:  res.User.Role,
			Email: res.User.Email,
			Token: res.User.Token,
		},
	})
}

func (h *LoginHandler) fail(w http.ResponseWriter, err error) {
	var typed *authsdk.Error
	if !errors.As(err, &typed) {
		typed = authsdk.ErrInternal
	}
	h.Metrics.RecordLogin(typed.Code)
	typed.WriteError(w)
}

// decodeLogin reads a JSON or form login body. form reports which it was.
func decodeLogin(w http.ResponseWriter, r *http.Request) (service.LoginRequest, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)

	switch {
	case httpx.IsJSON(r):
		var req service.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false, authsdk.ErrValidation.WithDetails("request body is not valid JSON")
		}
		return req, false, nil

	case httpx.IsForm(r):
		if err := r.ParseForm(); err != nil {
			return service.LoginRequest{}, true, authsdk.ErrValidation.WithDetails("request body is not a valid form")
		}
		keep, _ := strconv.ParseBool(r.PostForm.Get("keepSignedIn"))
		if r.PostForm.Get("keepSignedIn") == "on" {
			keep = true
		}
		return service.LoginRequest{
			Username:     r.PostForm.Get("username"),
			Password:     r.PostForm.Get("password"),
			KeepSignedIn: keep,
			CallbackURL:  r.PostForm.Get("callbackUrl"),
		}, true, nil

	default:
		return service.LoginRequest{}, false, authsdk.ErrValidation.WithDetails("expected a JSON or form body")
	}
}
