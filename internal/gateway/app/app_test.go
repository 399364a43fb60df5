package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authapp "github.com/aussiebroadwan/tollgate/internal/auth/app"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"GATEWAY_JWKS_URI", "GATEWAY_ISSUER", "GATEWAY_AUDIENCE", "GATEWAY_DEFAULT_KID",
		"GATEWAY_JWKS_TIMEOUT", "GATEWAY_JWKS_MIN_REFRESH", "GATEWAY_ROUTES_FILE",
		"GATEWAY_REDIS_ADDR", "PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/.well-known/jwks.json", cfg.JWKSURI)
	require.Equal(t, "tollgate-auth", cfg.Issuer)
	require.Equal(t, []string{"tollgate"}, cfg.Audience)
	require.Equal(t, jwtx.DefaultKeyID, cfg.DefaultKID)
	require.Equal(t, 3*time.Second, cfg.JWKSTimeout)
	require.Equal(t, 10*time.Second, cfg.JWKSMinRefresh)
	require.Zero(t, cfg.ClockLeeway)
	require.Equal(t, 8000, cfg.Port)
	require.Empty(t, cfg.RoutesFile)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GATEWAY_ROUTES_FILE", "/etc/env-routes.yaml")
	t.Setenv("GATEWAY_JWKS_TIMEOUT", "750ms")

	cfg, err := LoadConfig([]string{"--routes", "/etc/routes.yaml", "-p", "9100"})
	require.NoError(t, err)
	require.Equal(t, "/etc/routes.yaml", cfg.RoutesFile)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, 750*time.Millisecond, cfg.JWKSTimeout)

	_, err = LoadConfig([]string{"--no-such-flag"})
	require.Error(t, err)
}

// echoUpstream records the identity headers it receives.
type echoUpstream struct {
	mu      sync.Mutex
	calls   int
	headers http.Header
}

func (u *echoUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.calls++
	u.headers = r.Header.Clone()
	u.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
}

func (u *echoUpstream) snapshot() (int, http.Header) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls, u.headers
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Issuer:              "tollgate-auth",
		Audience:            []string{"tollgate"},
		DefaultKID:          jwtx.DefaultKeyID,
		JWKSTimeout:         time.Second,
		JWKSMinRefresh:      time.Second,
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "text",
		ShutdownGracePeriod: time.Second,
	}
}

// newStack runs a real authority and an echo upstream behind the gateway.
func newStack(t *testing.T) (http.Handler, *echoUpstream) {
	t.Helper()

	auth, err := authapp.New(authapp.Config{
		Issuer:               "tollgate-auth",
		Audience:             []string{"tollgate"},
		KeyID:                jwtx.DefaultKeyID,
		Algorithm:            jwtx.AlgorithmRS256,
		RSABits:              2048,
		AccessTokenTTL:       time.Minute,
		RefreshTokenTTL:      time.Hour,
		DatabaseFile:         ":memory:",
		PepperFile:           filepath.Join(t.TempDir(), "pepper"),
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	})
	require.NoError(t, err)
	authSrv := httptest.NewServer(auth.Handler())
	t.Cleanup(authSrv.Close)

	up := &echoUpstream{}
	upSrv := httptest.NewServer(up)
	t.Cleanup(upSrv.Close)

	routes := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(routes, fmt.Appendf(nil, `
routes:
  - prefix: /api/auth
    upstream: %s
  - prefix: /
    upstream: %s
`, authSrv.URL, upSrv.URL), 0o600))

	cfg := testConfig(t)
	cfg.JWKSURI = authSrv.URL + authsdk.JWKSPath
	cfg.RoutesFile = routes

	gw, err := New(cfg)
	require.NoError(t, err)
	return gw.Handler(), up
}

func register(t *testing.T, h http.Handler) authsdk.TokenPair {
	t.Helper()

	body, err := json.Marshal(authsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair authsdk.TokenPair
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pair))
	return pair
}

func TestGateway_EndToEnd(t *testing.T) {
	h, up := newStack(t)

	pair := register(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/7", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set(httpx.HeaderRoles, "ROLE_ADMIN")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"path":"/api/orders/7"}`, rec.Body.String())

	calls, headers := up.snapshot()
	require.Equal(t, 1, calls)
	require.Equal(t, pair.UserID, headers.Get(httpx.HeaderUserID))
	require.Equal(t, "alice", headers.Get(httpx.HeaderUsername))
	require.Equal(t, "USER", headers.Get(httpx.HeaderRoles))

	// The authority's own protected route also passes through the gateway.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me authsdk.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	require.Equal(t, "alice", me.Username)
}

func TestGateway_RejectsWithoutForwarding(t *testing.T) {
	h, up := newStack(t)
	pair := register(t, h)

	tests := []struct {
		name   string
		header string
	}{
		{"no token", ""},
		{"garbage", "Bearer not.a.jwt"},
		{"refresh token as bearer", "Bearer " + pair.RefreshToken},
		{"tampered", "Bearer " + pair.AccessToken + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.JSONEq(t, `{"error":"unauthorized","error_description":"authentication required"}`, rec.Body.String())
		})
	}

	calls, _ := up.snapshot()
	require.Zero(t, calls)
}

func TestGateway_SystemRoutes(t *testing.T) {
	h, _ := newStack(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "ok", health.Checks["jwks"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anything", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `tollgate_gateway_jwks_fetches_total{result="ok"} 1`)
	require.Contains(t, body, `tollgate_gateway_auth_decisions_total{outcome="missing_token"} 1`)
	require.Contains(t, body, `route="/*"`)
}

func TestGateway_NotReadyWithoutAuthority(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	cfg := testConfig(t)
	cfg.JWKSURI = dead.URL + authsdk.JWKSPath
	cfg.UpstreamURL = dead.URL

	gw, err := New(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "degraded", health.Status)
	require.Contains(t, health.Checks["jwks"], "error")
}

func TestNew_InvalidRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWKSURI = "http://localhost:8080" + authsdk.JWKSPath
	cfg.UpstreamURL = "not a url"

	_, err := New(cfg)
	require.Error(t, err)

	cfg.UpstreamURL = "http://localhost:8080"
	cfg.RoutesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(cfg)
	require.Error(t, err)
}
