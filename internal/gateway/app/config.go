package app

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/tollgate/internal/platform/envx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// Config is the gateway's runtime configuration.
type Config struct {
	JWKSURI        string        // Optional: authority JWKS URL (default: http://localhost:8080/.well-known/jwks.json)
	Issuer         string        // Optional: expected iss claim (default: tollgate-auth)
	Audience       []string      // Optional: expected aud claim, comma-separated (default: tollgate)
	DefaultKID     string        // Optional: kid assumed for tokens without one (default: tollgate-auth-key)
	JWKSTimeout    time.Duration // Optional: per-fetch timeout (default: 3s)
	JWKSMinRefresh time.Duration // Optional: minimum spacing between fetches (default: 10s)
	ClockLeeway    time.Duration // Optional: exp/nbf leeway (default: 0)
	UpstreamURL    string        // Optional: single upstream used when no routes file is given (default: http://localhost:8080)
	RoutesFile     string        // Optional: YAML routes file, also --routes
	RedisAddr      string        // Optional: redis address or URL for the shared JWKS tier
	RedisTTL       time.Duration // Optional: TTL of the shared JWKS copy (default: 5m)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port, also --port (default: 8000)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the environment, then applies command-line overrides.
func LoadConfig(args []string) (Config, error) {
	cfg := Config{
		JWKSURI:             envx.String("GATEWAY_JWKS_URI", "http://localhost:8080/.well-known/jwks.json"),
		Issuer:              envx.String("GATEWAY_ISSUER", "tollgate-auth"),
		Audience:            envx.CSV("GATEWAY_AUDIENCE", "tollgate"),
		DefaultKID:          envx.String("GATEWAY_DEFAULT_KID", jwtx.DefaultKeyID),
		JWKSTimeout:         envx.Duration("GATEWAY_JWKS_TIMEOUT", 3*time.Second),
		JWKSMinRefresh:      envx.Duration("GATEWAY_JWKS_MIN_REFRESH", 10*time.Second),
		ClockLeeway:         envx.Duration("GATEWAY_CLOCK_LEEWAY", 0),
		UpstreamURL:         envx.String("GATEWAY_UPSTREAM_URL", "http://localhost:8080"),
		RoutesFile:          envx.String("GATEWAY_ROUTES_FILE", ""),
		RedisAddr:           envx.String("GATEWAY_REDIS_ADDR", ""),
		RedisTTL:            envx.Duration("GATEWAY_REDIS_TTL", 5*time.Minute),
		Env:                 envx.String("ENV", "dev"),
		LogLevel:            envx.String("LOG_LEVEL", "info"),
		LogFormat:           envx.String("LOG_FORMAT", "json"),
		Port:                envx.Int("PORT", 8000),
		ShutdownGracePeriod: envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)
	fs.StringVar(&cfg.RoutesFile, "routes", cfg.RoutesFile, "path to the YAML routes file")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.UpstreamURL, "upstream", cfg.UpstreamURL, "upstream used when no routes file is given")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
