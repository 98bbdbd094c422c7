package service

import (
	"context"

	"github.com/aussiebroadwan/portal/pkg/authsdk"
)

// IdentityClient is the upstream identity service as seen by the services.
// *authsdk.SDKClient implements it.
type IdentityClient interface {
	Login(ctx context.Context, username, password string) (*authsdk.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (map[string]any, error)
	Ping(ctx context.Context) error
}

var _ IdentityClient = (*authsdk.SDKClient)(nil)
