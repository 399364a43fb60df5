package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes used when the deployment does not override them.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims shared by the authority, the gateway
// and anything else that verifies our tokens. New optional fields go in Ext
// until they earn a typed slot, so older verifiers keep decoding.
type Claims struct {
	jwt.RegisteredClaims

	Username string `json:"username,omitempty"`

	// PreferredUsername is what the gateway forwards as X-Auth-Username.
	PreferredUsername string `json:"preferred_username,omitempty"`

	Email string `json:"email,omitempty"`

	// Roles are bare role names ("USER", "ADMIN"), never ROLE_ prefixed.
	Roles []string `json:"roles,omitempty"`

	// Permissions granted through the roles, e.g. "profile:read".
	Permissions []string `json:"permissions,omitempty"`

	Ext map[string]any `json:"ext,omitempty"`
}

// Identity is the subject material that goes into an access token.
type Identity struct {
	UserID      string
	Username    string
	Email       string
	Roles       []string
	Permissions []string
}

// NewAccessClaims stamps id into claims valid from now for ttl, with a
// fresh jti.
func NewAccessClaims(
	id Identity,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username:          id.Username,
		PreferredUsername: id.Username,
		Email:             id.Email,
		Roles:             id.Roles,
		Permissions:       id.Permissions,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// DisplayUsername prefers preferred_username and falls back to username.
func (c *Claims) DisplayUsername() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Username
}

// Check applies the claim rules every verifier shares: issuer and audience
// when opts names them, the exp/nbf window widened by opts.Leeway, and a
// non-empty subject. Errors wrap the package sentinels.
func (c *Claims) Check(opts VerifyOptions, now time.Time) error {
	if opts.Issuer != "" && c.Issuer != opts.Issuer {
		return fmt.Errorf("%w: got %q", ErrIssuer, c.Issuer)
	}
	if len(opts.Audience) > 0 && !slices.ContainsFunc(opts.Audience, func(a string) bool {
		return slices.Contains(c.Audience, a)
	}) {
		return ErrAudience
	}
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(opts.Leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-opts.Leeway)) {
		return ErrNotYetValid
	}
	if c.Subject == "" {
		return fmt.Errorf("%w: missing sub", ErrInvalidClaim)
	}
	return nil
}
