package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRegisterLoginRefresh tests the complete flow:
// 1. Register a user
// 2. Login with the same credentials
// 3. Refresh the token
// 4. Verify token rotation (new tokens are different from old tokens)
func TestRegisterLoginRefresh(t *testing.T) {
	client := startAuth(t, relaxedLimits)

	registered := registerUser(t, client, "alice")

	login, err := client.Login(t.Context(), "alice", testPassword)
	require.NoError(t, err)
	assertTokenPair(t, login)
	require.Equal(t, registered.UserID, login.UserID)

	refreshed, err := client.Refresh(t.Context(), login.RefreshToken)
	require.NoError(t, err)
	assertTokenPair(t, refreshed)

	require.NotEqual(t, login.AccessToken, refreshed.AccessToken, "Access token should be rotated")
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken, "Refresh token should be rotated")

	profile, err := client.Me(t.Context(), refreshed.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", profile.Username)
	require.Equal(t, []string{"USER"}, profile.Roles)
}

// TestRefreshReuseRevokesFamily presents a rotated-out refresh token and
// checks that the whole chain, including the newest token, stops working.
func TestRefreshReuseRevokesFamily(t *testing.T) {
	client := startAuth(t, relaxedLimits)
	first := registerUser(t, client, "bob")

	second, err := client.Refresh(t.Context(), first.RefreshToken)
	require.NoError(t, err)

	_, err = client.Refresh(t.Context(), first.RefreshToken)
	assertAPIError(t, err, http.StatusForbidden, "Reused refresh token should be rejected")

	_, err = client.Refresh(t.Context(), second.RefreshToken)
	assertAPIError(t, err, http.StatusForbidden, "Descendant of a reused token should be revoked")

	// Other sessions of the same user are untouched.
	login, err := client.Login(t.Context(), "bob", testPassword)
	require.NoError(t, err)
	_, err = client.Refresh(t.Context(), login.RefreshToken)
	require.NoError(t, err)
}

// TestLogoutRevokesRefreshToken verifies a logged-out refresh token can no
// longer be exchanged, and that logout itself never fails.
func TestLogoutRevokesRefreshToken(t *testing.T) {
	client := startAuth(t, relaxedLimits)
	pair := registerUser(t, client, "carol")

	require.NoError(t, client.Logout(t.Context(), pair.RefreshToken))
	require.NoError(t, client.Logout(t.Context(), pair.RefreshToken), "Logout is idempotent")
	require.NoError(t, client.Logout(t.Context(), "never-issued"))

	_, err := client.Refresh(t.Context(), pair.RefreshToken)
	assertAPIError(t, err, http.StatusForbidden, "Logged-out token should be rejected")
}

// TestSessionRefreshesTransparently drives the SDK Session against the real
// service.
func TestSessionRefreshesTransparently(t *testing.T) {
	client := startAuth(t, relaxedLimits)
	registerUser(t, client, "dave")

	session, err := client.LoginSession(t.Context(), "dave", testPassword)
	require.NoError(t, err)

	before := session.RefreshToken()
	require.NoError(t, session.Refresh(t.Context()))
	require.NotEqual(t, before, session.RefreshToken())

	profile, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, session.UserID(), profile.UserID)
	require.True(t, session.HasRole("USER"))

	require.NoError(t, session.Logout(t.Context()))
}
