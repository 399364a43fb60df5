package authsdk

import (
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// ============================================================================
// Request Types
// ============================================================================

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	// Username is 3-32 chars of letters, digits, '_', '.', '-'
	Username string `json:"username" example:"alice"`

	Email string `json:"email" example:"alice@x.com"`

	// Password is 8-128 chars
	Password string `json:"password" example:"secret123"`

	FirstName string `json:"firstName,omitempty" example:"Alice"`
	LastName  string `json:"lastName,omitempty" example:"Liddell"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"secret123"`
}

// RefreshRequest is the body of POST /api/auth/refresh-token and
// POST /api/auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenPair is returned by register, login and refresh.
type TokenPair struct {
	// AccessToken is the signed JWT to send as a Bearer token
	AccessToken string `json:"accessToken"`

	// RefreshToken is the opaque single-use refresh token
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType" example:"Bearer"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int64 `json:"expiresIn" example:"900"`

	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// ============================================================================
// User Types
// ============================================================================

// Profile is returned from GET /api/auth/me.
type Profile struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status ("ok" or "unavailable")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks map[string]string `json:"checks,omitempty"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the JSON Web Key Set served from
// GET /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
