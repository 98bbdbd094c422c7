package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/portal/pkg/authsdk"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
)

// TokenValidator checks tokens locally (format, claims, expiry) and, when
// asked, with the issuer.
type TokenValidator struct {
	Identity IdentityClient
	Now      func() time.Time
}

func (v *TokenValidator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Local decodes raw and rejects it if expired. Errors are typed:
// ErrMalformedToken, ErrMalformedClaims or ErrAuthentication for an expired
// token.
func (v *TokenValidator) Local(raw string) (jwtx.Claims, error) {
	claims, err := jwtx.Decode(raw)
	switch {
	case errors.Is(err, jwtx.ErrMalformed):
		return jwtx.Claims{}, authsdk.ErrMalformedToken.Wrap(err)
	case errors.Is(err, jwtx.ErrInvalidClaim):
		return jwtx.Claims{}, authsdk.ErrMalformedClaims.WithDetails(err.Error()).Wrap(err)
	case err != nil:
		return jwtx.Claims{}, authsdk.ErrMalformedToken.Wrap(err)
	}

	if jwtx.IsExpired(claims, v.now()) {
		return jwtx.Claims{}, authsdk.ErrAuthentication.WithMessage("the token has expired")
	}
	return claims, nil
}

// Remote asks the issuer to accept raw. Issuer claims win when they
// normalize, taking exp and iat from the token's payload when the issuer
// omits them; an issuer that answers 2xx with no usable claims falls back to
// the token's own payload. Expiry is enforced either way. Transport failures
// are ErrServiceUnavailable, rejections ErrAuthentication. Never retried.
func (v *TokenValidator) Remote(ctx context.Context, raw string) (jwtx.Claims, error) {
	if !jwtx.CheckFormat(raw) {
		return jwtx.Claims{}, authsdk.ErrMalformedToken
	}

	remote, err := v.Identity.ValidateToken(ctx, raw)
	if err != nil {
		return jwtx.Claims{}, err
	}

	if len(remote) > 0 {
		if claims, err := jwtx.Normalize(remote); err == nil {
			if claims.ExpiresAt == nil {
				if local, err := jwtx.Decode(raw); err == nil {
					claims.ExpiresAt = local.ExpiresAt
					if claims.IssuedAt == nil {
						claims.IssuedAt = local.IssuedAt
					}
				}
			}
			if jwtx.IsExpired(claims, v.now()) {
				return jwtx.Claims{}, authsdk.ErrAuthentication.WithMessage("the token has expired")
			}
			return claims, nil
		}
	}
	return v.Local(raw)
}
