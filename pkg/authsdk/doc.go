/*
Package authsdk is the Go client for the tollgate auth service, plus the
wire types and error envelope the service itself writes.

# SDKClient vs Session

  - SDKClient: unauthenticated calls (register, login, refresh, logout,
    JWKS, health) against a base URL.
  - Session: wraps a TokenPair and refreshes the access token shortly
    before it expires. Refresh tokens are single-use, so a Session
    serialises refreshes behind a mutex.

	client := authsdk.NewSDKClient("http://localhost:8080")

	session, err := client.LoginSession(ctx, "alice", "secret123")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeUnauthorized {
			// bad credentials
		}
		return err
	}

	me, err := session.Me(ctx)
	fmt.Println(me.Username, session.Roles())

	_ = session.Logout(ctx)

# Errors

Every non-2xx response decodes into *APIError carrying the HTTP status,
the error code ("validation_error", "conflict", "unauthorized",
"forbidden", "internal_error", "rate_limit_exceeded") and, for
validation failures, per-field details.

# Gateways

The gateway uses GetJWKS as its key fetch function, so the SDK is also
the reference for how the JWKS document is retrieved.
*/
package authsdk
