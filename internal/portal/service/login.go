package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/portal/internal/portal/domain"
	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
	"github.com/go-playground/validator/v10"
)

// LoginRequest is the credential exchange input. Bounds are checked before
// any upstream call.
type LoginRequest struct {
	Username     string `json:"username"               validate:"required,max=128"`
	Password     string `json:"password"               validate:"required,max=256"`
	KeepSignedIn bool   `json:"keepSignedIn"`
	CallbackURL  string `json:"callbackUrl,omitempty" validate:"omitempty,max=2048"`
}

// LoginResult is a successful exchange: the user record and the claims it
// was built from.
type LoginResult struct {
	User         domain.User
	Claims       jwtx.Claims
	KeepSignedIn bool
}

// LoginService exchanges credentials with the identity service.
type LoginService struct {
	Identity  IdentityClient
	Validator *TokenValidator

	// RemoteValidation confirms the new token with the issuer before it is
	// accepted.
	RemoteValidation bool

	validate *validator.Validate
}

func NewLoginService(identity IdentityClient, tokens *TokenValidator, remoteValidation bool) *LoginService {
	return &LoginService{
		Identity:         identity,
		Validator:        tokens,
		RemoteValidation: remoteValidation,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Login validates req, calls the identity service and checks the returned
// token. Every failure is an *authsdk.Error.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator().Struct(req); err != nil {
		return nil, authsdk.ErrValidation.WithDetails(formatValidationErrors(err))
	}

	resp, err := s.Identity.Login(ctx, req.Username, req.Password)
	if err != nil {
		log.Info("login rejected", "username", req.Username, "err", err)
		return nil, asTyped(err)
	}

	var claims jwtx.Claims
	if s.RemoteValidation {
		claims, err = s.Validator.Remote(ctx, resp.Token)
	} else {
		claims, err = s.Validator.Local(resp.Token)
	}
	if err != nil {
		log.Warn("identity service issued an unusable token",
			"username", req.Username,
			"token_fp", cryptox.FingerprintToken(resp.Token),
			"err", err,
		)
		return nil, asTyped(err)
	}

	log.Info("login succeeded", "user_id", claims.SubjectID, "role", claims.Role)
	return &LoginResult{
		User: domain.User{
			ID:    claims.SubjectID,
			Name:  claims.DisplayName,
			Role:  claims.Role,
			Email: claims.Email,
			Token: resp.Token,
		},
		Claims:       claims,
		KeepSignedIn: req.KeepSignedIn,
	}, nil
}

func (s *LoginService) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s.validate
}

// asTyped keeps *authsdk.Error values and wraps anything else as internal.
func asTyped(err error) error {
	var typed *authsdk.Error
	if errors.As(err, &typed) {
		return err
	}
	return authsdk.ErrInternal.Wrap(err)
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
