/*
Package authsdk is the client for the upstream identity service and the home
of the gateway's typed error taxonomy.

# Calls

	client := authsdk.NewSDKClient("https://verify.example.com")

	// POST /login, bounded by LoginTimeout (10s)
	resp, err := client.Login(ctx, username, password)

	// GET /validate-token, bounded by ValidateTimeout (5s)
	claims, err := client.ValidateToken(ctx, resp.Token)

Nothing is retried. A timeout or network failure is reported as
ErrServiceUnavailable and the caller decides what to do.

# Errors

Every failure is an *Error with a stable Code. Match with errors.Is against
the predefined values:

	switch {
	case errors.Is(err, authsdk.ErrInvalidCredentials):
		// wrong password
	case errors.Is(err, authsdk.ErrServiceUnavailable):
		// identity service down, ask the user to try again
	}

Handlers render errors with (*Error).WriteError, which produces

	{"error": "invalid_credentials", "message": "...", "details": "..."}
*/
package authsdk
