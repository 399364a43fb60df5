package auth_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testImageName = "tollgate-auth-test:latest"

	testIssuer   = "tollgate-auth"
	testAudience = "tollgate"
	testKeyID    = "tollgate-auth-key"
	testSecret   = "e2e-token-secret-that-is-long-enough-000"

	testPassword = "secret123"
)

// TestMain builds the image once for the whole package and removes it
// afterwards.
func TestMain(m *testing.M) {
	ctx := context.Background()

	build := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	build.Stdout = os.Stdout
	if err := build.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build %s: %v\n", testImageName, err)
		os.Exit(1)
	}

	code := m.Run()

	_ = exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName).Run()
	os.Exit(code)
}

func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_DATABASE_FILE": "/data/auth.db",
		"AUTH_PEPPER_FILE":   "/data/pepper",
		"AUTH_TOKEN_SECRET":  testSecret,
		"AUTH_KEY_ID":        testKeyID,
		"AUTH_ISSUER":        testIssuer,
		"AUTH_AUDIENCE":      testAudience,
		"ENV":                "test",
		"LOG_FORMAT":         "json",
	}
}

// relaxedLimits lifts the credential and session limits so suites that
// register many users in a burst do not trip them.
var relaxedLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
}

// startAuth runs the auth image with baseEnv plus extra and returns an SDK
// client pointed at it. The container is removed when t finishes.
func startAuth(t *testing.T, extra map[string]string) *authsdk.SDKClient {
	t.Helper()
	ctx := t.Context()

	env := baseEnv()
	maps.Copy(env, extra)

	ctr, err := testcontainers.Run(ctx, testImageName,
		testcontainers.WithExposedPorts("8080/tcp"),
		testcontainers.WithEnv(env),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/readyz").WithPort("8080/tcp").WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.PortEndpoint(ctx, "8080/tcp", "http")
	require.NoError(t, err)
	return authsdk.NewSDKClient(endpoint)
}

// registerUser creates a user with the shared test password.
func registerUser(t *testing.T, client *authsdk.SDKClient, username string) *authsdk.TokenPair {
	t.Helper()

	pair, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err, "Register should succeed")
	assertTokenPair(t, pair)
	return pair
}

// assertTokenPair verifies a token pair has all required fields.
func assertTokenPair(t *testing.T, pair *authsdk.TokenPair) {
	t.Helper()
	require.NotNil(t, pair)
	require.NotEmpty(t, pair.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, pair.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", pair.TokenType, "Token type should be Bearer")
	require.Positive(t, pair.ExpiresIn)
	require.NotEmpty(t, pair.UserID)
}

// assertAPIError checks err is an APIError with the given status.
func assertAPIError(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "%s - expected APIError, got: %v", context, err)
	require.Equal(t, status, apiErr.StatusCode, "%s - unexpected status: %v", context, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
