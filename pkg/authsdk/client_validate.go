package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ValidateToken asks the issuer whether token is still accepted via
// GET /validate-token. Any non-2xx answer is ErrAuthentication; transport
// failures and timeouts are ErrServiceUnavailable. The returned map is the
// issuer's claim set, which may be empty if the issuer sends none.
func (c *SDKClient) ValidateToken(ctx context.Context, token string) (map[string]any, error) {
	ctx, cancel := withTimeout(ctx, c.ValidateTimeout)
	defer cancel()

	status, body, err := c.doRequest(ctx, http.MethodGet, "/validate-token", nil, map[string]string{
		"Authorization": "Bearer " + token,
		"Accept":        "application/json",
	})
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, ErrAuthentication.WithDetails(fmt.Sprintf("HTTP %d: %s", status, upstreamMessage(body)))
	}

	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var wrapped ValidateResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Claims) > 0 {
		return wrapped.Claims, nil
	}

	var flat map[string]any
	if err := json.Unmarshal(body, &flat); err != nil {
		return map[string]any{}, nil
	}
	return flat, nil
}
