package authsdk

import (
	"context"
	"net/http"
)

// Ping checks that the identity service answers HTTP at all. Any status
// code counts as reachable; only transport failures are reported.
func (c *SDKClient) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, c.HealthTimeout)
	defer cancel()

	_, _, err := c.doRequest(ctx, http.MethodGet, "/", nil, nil)
	return err
}
