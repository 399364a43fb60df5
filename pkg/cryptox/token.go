package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Entropy sizes in bytes, before base64url encoding.
const (
	TokenSize128 = 16 // 22 chars
	TokenSize256 = 32 // 43 chars, used for refresh tokens
)

// GenerateToken returns size random bytes as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken panics where GenerateToken would fail.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(err)
	}
	return token
}

// FingerprintToken is the SHA-256 of token, base64url encoded. Refresh
// tokens are stored only as fingerprints.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
