package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/portal/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeValidation                = "validation_error"
	ErrorCodeMalformedToken            = "malformed_token"
	ErrorCodeMalformedClaims           = "malformed_claims"
	ErrorCodeInvalidRequest            = "invalid_request"
	ErrorCodeInvalidCredentials        = "invalid_credentials"
	ErrorCodeAccountLocked             = "account_locked"
	ErrorCodeRateLimited               = "rate_limited"
	ErrorCodeAuthentication            = "authentication_error"
	ErrorCodeServiceUnavailable        = "service_unavailable"
	ErrorCodeMalformedUpstreamResponse = "malformed_upstream_response"
	ErrorCodeUpstream                  = "upstream_error"
	ErrorCodeUnauthorized              = "unauthorized"
	ErrorCodeForbidden                 = "forbidden"
	ErrorCodeInternal                  = "internal_error"
)

// ============================================================================
// Error - typed gateway error
// ============================================================================

// Error is a typed failure with a stable code. It is returned by the SDK
// client and written by HTTP handlers. Two Errors match under errors.Is when
// their codes are equal, so copies made with WithDetails or Wrap still match
// the predefined values below.
type Error struct {
	// StatusCode is the HTTP status used when writing this error
	StatusCode int `json:"-"`

	// Code is the stable machine-readable code
	Code string `json:"error"`

	// Message is a human-readable description
	Message string `json:"message,omitempty"`

	// Details carries diagnostics (upstream body, field errors)
	Details string `json:"details,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e with cause attached for logging and errors.Is.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// WriteError writes this error as a JSON body with no-cache headers.
func (e *Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrValidation is returned when input fails local checks. No network call
	// is made in that case.
	ErrValidation = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeValidation,
		Message:    "the request failed validation",
	}

	// ErrMalformedToken is returned when a token is not a three-segment JWT or
	// its payload cannot be decoded.
	ErrMalformedToken = &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeMalformedToken,
		Message:    "the token is malformed",
	}

	// ErrMalformedClaims is returned when required claims are missing after
	// normalization.
	ErrMalformedClaims = &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeMalformedClaims,
		Message:    "the token is missing required claims",
	}

	ErrInvalidRequest = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidRequest,
		Message:    "the identity service rejected the request",
	}

	ErrInvalidCredentials = &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidCredentials,
		Message:    "invalid username or password",
	}

	ErrAccountLocked = &Error{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeAccountLocked,
		Message:    "the account is locked",
	}

	ErrRateLimited = &Error{
		StatusCode: http.StatusTooManyRequests,
		Code:       ErrorCodeRateLimited,
		Message:    "too many attempts, try again later",
	}

	// ErrAuthentication is returned when the issuer explicitly rejects a token.
	ErrAuthentication = &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeAuthentication,
		Message:    "the token was not accepted",
	}

	// ErrServiceUnavailable covers network failures and timeouts talking to
	// an upstream. It is never retried by the gateway.
	ErrServiceUnavailable = &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       ErrorCodeServiceUnavailable,
		Message:    "service unavailable, try again",
	}

	// ErrMalformedUpstreamResponse is returned for a 2xx answer that lacks a
	// required field.
	ErrMalformedUpstreamResponse = &Error{
		StatusCode: http.StatusBadGateway,
		Code:       ErrorCodeMalformedUpstreamResponse,
		Message:    "the identity service returned an unusable response",
	}

	// ErrUpstream is returned for unmapped non-2xx answers. Details carries
	// the upstream body.
	ErrUpstream = &Error{
		StatusCode: http.StatusBadGateway,
		Code:       ErrorCodeUpstream,
		Message:    "the identity service returned an error",
	}

	// ErrUnauthorized is written when a protected API route is called without
	// a usable session. API authorization failures are always 403.
	ErrUnauthorized = &Error{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeUnauthorized,
		Message:    "authentication required",
	}

	// ErrForbidden is written when the session's role is not permitted.
	ErrForbidden = &Error{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeForbidden,
		Message:    "insufficient role for this resource",
	}

	ErrInternal = &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeInternal,
		Message:    "internal server error",
	}
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// maxDetailsLen bounds how much of an upstream body is kept for diagnostics.
const maxDetailsLen = 1024

// parseLoginError maps a non-2xx login answer to a typed error.
func parseLoginError(status int, body []byte) error {
	switch status {
	case http.StatusBadRequest:
		return ErrInvalidRequest.WithDetails(upstreamMessage(body))
	case http.StatusUnauthorized:
		return ErrInvalidCredentials
	case http.StatusForbidden:
		return ErrAccountLocked
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUpstream.WithDetails(fmt.Sprintf("HTTP %d: %s", status, truncate(body)))
	}
}

// upstreamMessage extracts a message from a JSON error body, falling back to
// the raw text.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return truncate(body)
}

func truncate(body []byte) string {
	if len(body) > maxDetailsLen {
		return string(body[:maxDetailsLen])
	}
	return string(body)
}
