package httpx

import (
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Rate limit profiles per endpoint class. Each can be overridden with
// RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// StrictLimit guards credential endpoints: register, login, refresh.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit is for authenticated calls such as logout and /me.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit is for health probes.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit is for the JWKS document, which every verifier polls.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
	TrustedProxies = ParseTrustedProxies(os.Getenv("RATELIMIT_TRUSTED_PROXIES"))
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and
// _BURST over the defaults. Non-positive or unparsable values are ignored.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		config.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		config.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		config.Burst = n
	}

	return config
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address or user ID).
type KeyExtractor func(*http.Request) string

// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP headers
// IPKeyExtractor believes. Set from RATELIMIT_TRUSTED_PROXIES, a
// comma-separated list of IPs or CIDRs. Empty means forwarding headers are
// ignored and every request is keyed by its TCP peer.
var TrustedProxies []netip.Prefix

// ParseTrustedProxies reads a comma-separated list of IPs and CIDRs.
// Entries that parse as neither are skipped.
func ParseTrustedProxies(list string) []netip.Prefix {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if p, err := netip.ParsePrefix(item); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(item); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

// IPKeyExtractor keys requests by client IP, trusting forwarding headers
// only from TrustedProxies.
func IPKeyExtractor(r *http.Request) string {
	return clientIP(r, TrustedProxies)
}

// ClientIPExtractor is IPKeyExtractor with an explicit proxy list.
func ClientIPExtractor(trusted []netip.Prefix) KeyExtractor {
	return func(r *http.Request) string {
		return clientIP(r, trusted)
	}
}

// clientIP returns the TCP peer unless the peer is a trusted proxy. Behind
// the gateway the nearest proxy appends the real peer to X-Forwarded-For,
// so the right-most entry is the one we can trust; the left-most is
// whatever the client claimed.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

func isTrusted(peer string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// UserIDKeyExtractor extracts the authenticated user ID from the context.
// Returns empty string if no user is authenticated.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// CompositeKeyExtractor combines multiple key extractors with a separator,
// skipping extractors that return nothing.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterEntry pairs a token bucket with its last use so idle keys can be swept.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter holds one token bucket per key.
type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rate    rate.Limit
	burst   int
	idleTTL time.Duration

	lastSweep time.Time
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		entries:   make(map[string]*limiterEntry),
		rate:      rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:     config.Burst,
		idleTTL:   max(config.Window*2, 5*time.Minute),
		lastSweep: time.Now(),
	}
}

// reserve checks the bucket for key. When the request is refused it also
// returns how long until a token frees up.
func (rl *rateLimiter) reserve(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops buckets idle for longer than idleTTL. Caller holds mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idleTTL {
		return
	}
	rl.lastSweep = now
	for k, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.idleTTL {
			delete(rl.entries, k)
		}
	}
}

// RateLimitMiddleware creates a rate limiting middleware with the given configuration.
// The keyExtractor determines how requests are grouped for rate limiting.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	rl := newRateLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			allowed, delay := rl.reserve(key, time.Now())
			if !allowed {
				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP creates a rate limiter that limits by IP address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser limits by authenticated user ID plus IP, falling back to
// IP alone for anonymous callers.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}
