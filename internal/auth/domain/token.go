package domain

import "time"

// TokenType is the token_type reported alongside every issued pair.
const TokenType = "Bearer"

// TokenPair is what register, login and refresh hand back: a short-lived
// signed access token and an opaque refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	User         User
}

// RefreshToken models the stored refresh token record in the DB. One row
// exists per issuance; rows descended from the same login share FamilyID.
type RefreshToken struct {
	ID        string
	UserID    string
	FamilyID  string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
