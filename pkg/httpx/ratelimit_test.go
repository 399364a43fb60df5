package httpx_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveFrom(h http.Handler, remote string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = remote
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientIPExtractor(t *testing.T) {
	trusted := httpx.ParseTrustedProxies("10.0.0.0/8, 192.0.2.1, not-an-ip")
	require.Len(t, trusted, 2)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.0.2.10:5555", nil, "192.0.2.10"},
		{"remote addr without port", "192.0.2.10", nil, "192.0.2.10"},
		{"right-most forwarded entry", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "6.6.6.6, 203.0.113.1"}, "203.0.113.1"},
		{"single forwarded entry", "192.0.2.1:1", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "203.0.113.9"},
		{"real ip fallback", "10.0.0.5:1", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "203.0.113.2"},
		{"forwarded wins over real ip", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "203.0.113.2"}, "203.0.113.1"},
		{"untrusted peer forwarded ignored", "198.51.100.7:1", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "198.51.100.7"},
		{"untrusted peer real ip ignored", "198.51.100.7:1", map[string]string{"X-Real-IP": "203.0.113.2"}, "198.51.100.7"},
	}

	extract := httpx.ClientIPExtractor(trusted)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, extract(req))
		})
	}
}

func TestIPKeyExtractor_IgnoresForwardingWithoutTrustedProxies(t *testing.T) {
	require.Empty(t, httpx.TrustedProxies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:1"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	req.Header.Set("X-Real-IP", "203.0.113.2")
	require.Equal(t, "10.0.0.5", httpx.IPKeyExtractor(req))
}

func TestCompositeKeyExtractor(t *testing.T) {
	extractor := httpx.CompositeKeyExtractor(":", httpx.UserIDKeyExtractor, httpx.IPKeyExtractor)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	require.Equal(t, "192.0.2.10", extractor(req))

	req = req.WithContext(httpx.WithPrincipal(req.Context(), httpx.NewPrincipal("u1", "alice", nil, nil)))
	require.Equal(t, "u1:192.0.2.10", extractor(req))
}

func TestRateLimitMiddleware_BurstThenReject(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
	h := httpx.RateLimitByIP(cfg)(okHandler())

	for i := range 3 {
		require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1").Code, "request %d", i+1)
	}

	rec := serveFrom(h, "192.0.2.10:1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, retry, 1)
	require.LessOrEqual(t, retry, 20)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "rate_limit_exceeded", body["error"])
	require.NotEmpty(t, body["error_description"])

	// Another client is unaffected.
	require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.11:1").Code)
}

func TestRateLimitMiddleware_Refills(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 20, Window: time.Second, Burst: 1}
	h := httpx.RateLimitByIP(cfg)(okHandler())

	require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1").Code)
	require.Equal(t, http.StatusTooManyRequests, serveFrom(h, "192.0.2.10:1").Code)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1").Code)
}

func TestRateLimitMiddleware_NoKeyPassesThrough(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitMiddleware(cfg, httpx.UserIDKeyExtractor)(okHandler())

	for range 5 {
		require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1").Code)
	}
}

func TestRateLimitByUser(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByUser(cfg)(okHandler())

	as := func(userID string) func(*http.Request) {
		return func(r *http.Request) {
			*r = *r.WithContext(httpx.WithPrincipal(r.Context(), httpx.NewPrincipal(userID, userID, nil, nil)))
		}
	}

	// Same IP, different users: separate buckets.
	require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1", as("alice")).Code)
	require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1", as("bob")).Code)
	require.Equal(t, http.StatusTooManyRequests, serveFrom(h, "192.0.2.10:1", as("alice")).Code)

	// Anonymous callers fall back to the IP alone.
	require.Equal(t, http.StatusOK, serveFrom(h, "192.0.2.10:1").Code)
	require.Equal(t, http.StatusTooManyRequests, serveFrom(h, "192.0.2.10:1").Code)
}

func TestRateLimitProfiles(t *testing.T) {
	ordered := []httpx.RateLimitConfig{httpx.StrictLimit, httpx.ModerateLimit, httpx.LenientLimit, httpx.PublicLimit}
	for i, cfg := range ordered {
		require.Positive(t, cfg.RequestsPerWindow)
		require.Positive(t, cfg.Window)
		require.Positive(t, cfg.Burst)
		if i > 0 {
			require.Less(t, ordered[i-1].RequestsPerWindow, cfg.RequestsPerWindow)
		}
	}
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	tests := []struct {
		name string
		env  map[string]string
		want httpx.RateLimitConfig
	}{
		{"defaults", nil, def},
		{"requests", map[string]string{"REQUESTS": "50"}, httpx.RateLimitConfig{RequestsPerWindow: 50, Window: time.Minute, Burst: 10}},
		{"window", map[string]string{"WINDOW_SEC": "120"}, httpx.RateLimitConfig{RequestsPerWindow: 10, Window: 2 * time.Minute, Burst: 10}},
		{"burst", map[string]string{"BURST": "100"}, httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 100}},
		{"all", map[string]string{"REQUESTS": "1000", "WINDOW_SEC": "60", "BURST": "1000"}, httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}},
		{"ignores junk", map[string]string{"REQUESTS": "lots", "WINDOW_SEC": "0", "BURST": "-3"}, def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, suffix := range []string{"REQUESTS", "WINDOW_SEC", "BURST"} {
				t.Setenv("RATELIMIT_TEST_"+suffix, tt.env[suffix])
			}
			require.Equal(t, tt.want, httpx.ParseRateLimitFromEnv("TEST", def))
		})
	}
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1_000_000, Window: time.Minute, Burst: 1000}
	h := httpx.RateLimitByIP(cfg)(okHandler())

	for i := 0; b.Loop(); i++ {
		serveFrom(h, fmt.Sprintf("10.%d.%d.%d:1", (i>>16)&0xff, (i>>8)&0xff, i&0xff))
	}
}
