package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Login exchanges a username and password for a signed token via
// POST /login. Upstream statuses map to typed errors:
//
//	400 -> ErrInvalidRequest
//	401 -> ErrInvalidCredentials
//	403 -> ErrAccountLocked
//	429 -> ErrRateLimited
//	other non-2xx -> ErrUpstream (details carry the body)
//
// A 2xx answer without a token is ErrMalformedUpstreamResponse.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	ctx, cancel := withTimeout(ctx, c.LoginTimeout)
	defer cancel()

	payload, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/login", bytes.NewReader(payload), map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, parseLoginError(status, body)
	}

	var out LoginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, ErrMalformedUpstreamResponse.WithDetails("response body is not JSON").Wrap(err)
	}
	out.Token = strings.TrimSpace(out.Token)
	if out.Token == "" {
		return nil, ErrMalformedUpstreamResponse.WithDetails("response has no token")
	}

	return &out, nil
}
