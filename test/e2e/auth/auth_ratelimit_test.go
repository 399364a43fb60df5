package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies that login is rate limited. Credential
// endpoints have strict limits (5 req/min) to slow brute force attempts.
func TestRateLimitLoginEndpoint(t *testing.T) {
	client := startAuth(t, nil)

	for i := range 5 {
		_, err := client.Login(t.Context(), "wronguser", "wrongpass")
		assertAPIError(t, err, http.StatusUnauthorized, "Invalid credentials should fail before the limit")
		t.Logf("request %d rejected with 401", i+1)
	}

	_, err := client.Login(t.Context(), "wronguser", "wrongpass")
	assertAPIError(t, err, http.StatusTooManyRequests, "Should be rate limited after 5 requests")

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, authsdk.ErrorCodeRateLimited, apiErr.Code)
}

// TestRateLimitJWKSEndpoint verifies the JWKS endpoint has a high public
// limit, since every verifier polls it.
func TestRateLimitJWKSEndpoint(t *testing.T) {
	client := startAuth(t, nil)

	for i := range 50 {
		jwks, err := client.GetJWKS(t.Context())
		require.NoError(t, err, "Request %d should not be rate limited", i+1)
		require.NotEmpty(t, jwks.Keys)
	}
}

// TestRateLimitHealthEndpoints verifies health probes have lenient limits.
func TestRateLimitHealthEndpoints(t *testing.T) {
	client := startAuth(t, nil)

	for i := range 30 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "Liveness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)

		health, err = client.GetReadiness(t.Context())
		require.NoError(t, err, "Readiness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)
	}
}
