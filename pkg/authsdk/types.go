package authsdk

// ============================================================================
// Identity Service Types
// ============================================================================

// LoginRequest is the body sent to POST /login on the identity service.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the identity service's answer to a successful login.
// A 2xx answer without Token is treated as malformed.
type LoginResponse struct {
	// Token is the compact signed session token
	Token string `json:"token"`
}

// ValidateResponse is the body of a successful GET /validate-token. Some
// deployments wrap the claims, others return them at the top level.
type ValidateResponse struct {
	Claims map[string]any `json:"claims,omitempty"`
}

// ============================================================================
// Gateway Response Types
// ============================================================================

// ErrorResponse is the JSON body the gateway writes for every typed error.
type ErrorResponse struct {
	// Error is the stable error code (e.g., "invalid_credentials", "forbidden")
	Error string `json:"error"`

	// Message is a human-readable description
	Message string `json:"message,omitempty"`

	// Details carries diagnostics such as the upstream body or field errors
	Details string `json:"details,omitempty"`
}

// UserResponse is the minimal user record returned by a successful login.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Token string `json:"token"`
}

// LoginResult is the gateway's JSON answer to POST /api/auth/login.
type LoginResult struct {
	User UserResponse `json:"user"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of the gateway's collaborators.
type HealthChecks struct {
	Identity     string `json:"identity"`
	SessionStore string `json:"session_store"`
}
