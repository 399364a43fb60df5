package app

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/platform/envx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// Config is the auth service's runtime configuration. Every field comes
// from the environment; see LoadConfig for variable names and defaults.
type Config struct {
	// Signing
	TokenSecret string   // AUTH_TOKEN_SECRET: HMAC secret, base64 or raw, >= 32 bytes. Required in prod.
	Issuer      string   // AUTH_ISSUER
	Audience    []string // AUTH_AUDIENCE, comma separated
	KeyID       string   // AUTH_KEY_ID: kid of the published RSA key
	Algorithm   string   // AUTH_ACCESS_TOKEN_ALG: RS256 or HS256
	RSABits     int      // AUTH_RSA_BITS

	// Tokens
	AccessTokenTTL  time.Duration // AUTH_ACCESS_TOKEN_TTL
	RefreshTokenTTL time.Duration // AUTH_REFRESH_TOKEN_TTL

	// Storage
	DatabaseFile string // AUTH_DATABASE_FILE, or ":memory:"
	PepperFile   string // AUTH_PEPPER_FILE: created on first start

	// Process
	Env                  string // ENV: dev, staging or prod
	LogLevel             string // LOG_LEVEL
	LogFormat            string // LOG_FORMAT: json or text
	Port                 int    // PORT
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

// LoadConfig reads the environment.
func LoadConfig() Config {
	return Config{
		TokenSecret: envx.String("AUTH_TOKEN_SECRET", ""),
		Issuer:      envx.String("AUTH_ISSUER", "tollgate-auth"),
		Audience:    envx.CSV("AUTH_AUDIENCE", "tollgate"),
		KeyID:       envx.String("AUTH_KEY_ID", jwtx.DefaultKeyID),
		Algorithm:   envx.String("AUTH_ACCESS_TOKEN_ALG", jwtx.AlgorithmRS256),
		RSABits:     envx.Int("AUTH_RSA_BITS", 2048),

		AccessTokenTTL:  envx.Duration("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: envx.Duration("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseFile: envx.String("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   envx.String("AUTH_PEPPER_FILE", "pepper"),

		Env:                  envx.String("ENV", "dev"),
		LogLevel:             envx.String("LOG_LEVEL", "info"),
		LogFormat:            envx.String("LOG_FORMAT", "json"),
		Port:                 envx.Int("PORT", 8080),
		ShutdownGracePeriod:  envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: envx.Duration("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// IsProd reports whether missing secrets must be treated as fatal.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}
