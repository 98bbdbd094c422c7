package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// Default per-call budgets for the identity service.
const (
	DefaultLoginTimeout    = 10 * time.Second
	DefaultValidateTimeout = 5 * time.Second
	DefaultHealthTimeout   = 3 * time.Second
)

// SDKClient is a client for the upstream identity service. Every call is
// bounded by its own timeout; a timed-out or failed call is reported as
// ErrServiceUnavailable and never retried.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// LoginTimeout bounds POST /login.
	LoginTimeout time.Duration

	// ValidateTimeout bounds GET /validate-token.
	ValidateTimeout time.Duration

	// HealthTimeout bounds Ping.
	HealthTimeout time.Duration
}

// NewSDKClient creates a new identity service client with default timeouts.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		HTTPClient:      &http.Client{},
		LoginTimeout:    DefaultLoginTimeout,
		ValidateTimeout: DefaultValidateTimeout,
		HealthTimeout:   DefaultHealthTimeout,
	}
}
