package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// fakeAuth is a minimal stand-in for the auth service. Each refresh
// token is single-use, like the real thing.
type fakeAuth struct {
	mu        sync.Mutex
	counter   int
	live      map[string]bool
	refreshes atomic.Int32
	expiresIn int64
}

func newFakeAuth(t *testing.T, expiresIn int64) (*fakeAuth, *authsdk.SDKClient) {
	t.Helper()
	f := &fakeAuth{live: map[string]bool{}, expiresIn: expiresIn}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, authsdk.NewSDKClient(srv.URL + "/")
}

func (f *fakeAuth) issue() authsdk.TokenPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	rt := fmt.Sprintf("rt-%d", f.counter)
	f.live[rt] = true
	return authsdk.TokenPair{
		AccessToken:  "at-" + rt,
		RefreshToken: rt,
		TokenType:    "Bearer",
		ExpiresIn:    f.expiresIn,
		UserID:       "user-1",
		Username:     "alice",
		Roles:        []string{"USER"},
	}
}

func (f *fakeAuth) spend(rt string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.live[rt]
	delete(f.live, rt)
	return ok
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAuth) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret123" {
			authsdk.ErrUnauthorized.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, f.issue())
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username == "taken" {
			authsdk.ErrConflict.WriteError(w)
			return
		}
		if req.Email == "" {
			authsdk.NewValidationError(map[string]string{"email": "is required"}).WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, f.issue())
	})
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		var req authsdk.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !f.spend(req.RefreshToken) {
			authsdk.ErrForbidden.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, f.issue())
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.spend(req.RefreshToken)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			authsdk.ErrAuthenticationRequired.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, authsdk.Profile{
			UserID:      "user-1",
			Username:    "alice",
			Roles:       []string{"USER"},
			Permissions: []string{"profile:read"},
		})
	})
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[{"kty":"RSA","use":"sig","alg":"RS256","kid":"k1","n":"AQAB","e":"AQAB"}]}`))
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{Status: "degraded"})
	})

	return mux
}

func TestClient_LoginAndRefresh(t *testing.T) {
	_, c := newFakeAuth(t, 900)
	ctx := context.Background()

	pair, err := c.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)

	next, err := c.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = c.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrForbidden)

	require.NoError(t, c.Logout(ctx, next.RefreshToken))
	require.NoError(t, c.Logout(ctx, "unknown"))
}

func TestClient_Errors(t *testing.T) {
	_, c := newFakeAuth(t, 900)
	ctx := context.Background()

	_, err := c.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, authsdk.ErrUnauthorized)

	_, err = c.Register(ctx, authsdk.RegisterRequest{Username: "taken", Email: "a@b.c", Password: "secret123"})
	require.ErrorIs(t, err, authsdk.ErrConflict)

	_, err = c.Register(ctx, authsdk.RegisterRequest{Username: "bob", Password: "secret123"})
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeValidation, apiErr.Code)
	require.Equal(t, "is required", apiErr.Details["email"])

	_, err = c.Me(ctx, "")
	require.ErrorIs(t, err, authsdk.ErrAuthenticationRequired)
}

func TestClient_JWKSAndHealth(t *testing.T) {
	_, c := newFakeAuth(t, 900)
	ctx := context.Background()

	jwks, err := c.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "k1", jwks.Keys[0].Kid)

	live, err := c.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	_, err = c.GetReadiness(ctx)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := authsdk.NewSDKClient(srv.URL).GetJWKS(context.Background())
	require.ErrorIs(t, err, authsdk.ErrBadGateway)
}

func TestSession_RefreshesExpiredAccessToken(t *testing.T) {
	// expiresIn below the refresh skew: every AccessToken call must rotate.
	f, c := newFakeAuth(t, 1)
	ctx := context.Background()

	s, err := c.LoginSession(ctx, "alice", "secret123")
	require.NoError(t, err)
	first := s.RefreshToken()

	token, err := s.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, "at-"+first, token)
	require.NotEqual(t, first, s.RefreshToken())
	require.Equal(t, int32(1), f.refreshes.Load())

	require.Equal(t, "user-1", s.UserID())
	require.True(t, s.HasRole("USER"))

	me, err := s.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)

	require.NoError(t, s.Logout(ctx))
	require.Empty(t, s.RefreshToken())
	require.NoError(t, s.Logout(ctx))
}

func TestSession_CachesValidAccessToken(t *testing.T) {
	f, c := newFakeAuth(t, 900)
	ctx := context.Background()

	s, err := c.LoginSession(ctx, "alice", "secret123")
	require.NoError(t, err)

	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, err := s.AccessToken(ctx)
			errs <- err
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(0), f.refreshes.Load())

	roles := s.Roles()
	roles[0] = "ADMIN"
	require.Equal(t, []string{"USER"}, s.Roles())
}

func TestSession_FailedRefreshSpendsToken(t *testing.T) {
	f, c := newFakeAuth(t, 900)
	ctx := context.Background()

	s := c.NewSession(&authsdk.TokenPair{AccessToken: "x", RefreshToken: "never-issued", ExpiresIn: 900})

	err := s.Refresh(ctx)
	require.ErrorIs(t, err, authsdk.ErrForbidden)
	require.Empty(t, s.RefreshToken())

	// No second round trip with a token we know is dead.
	require.Error(t, s.Refresh(ctx))
	require.Equal(t, int32(1), f.refreshes.Load())
}
