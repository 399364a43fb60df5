package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrPasswordMismatch is returned when the password does not match the hash.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrInvalidHash is returned when the stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid hash format")
)

// Argon2Params are the Argon2id cost settings recorded in every hash.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultArgon2Params follows the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword hashes password with the process pepper and returns a PHC
// string: $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func HashPassword(password string) (string, error) {
	pepper, err := Pepper()
	if err != nil {
		return "", err
	}

	p := DefaultArgon2Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: salt: %w", err)
	}

	key := argon2.IDKey(peppered(password, pepper), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return encodePHC(p, salt, key), nil
}

// VerifyPassword checks password against a hash from HashPassword. The hash's
// own parameters are used, so older hashes keep verifying after the defaults
// change.
func VerifyPassword(password, encodedHash string) error {
	p, salt, expected, err := decodePHC(encodedHash)
	if err != nil {
		return err
	}

	pepper, err := Pepper()
	if err != nil {
		return err
	}

	computed := argon2.IDKey(peppered(password, pepper), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func peppered(password string, pepper []byte) []byte {
	b := make([]byte, 0, len(password)+len(pepper))
	b = append(b, password...)
	return append(b, pepper...)
}

func encodePHC(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodePHC(s string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: algorithm %q", ErrInvalidHash, parts[1])
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: version %q", ErrInvalidHash, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrInvalidHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: hash", ErrInvalidHash)
	}

	p.SaltLength = len(salt)
	p.KeyLength = uint32(len(key)) // #nosec G115 -- decoded from a short PHC segment
	return p, salt, key, nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// BurnPasswordCheck runs a full Argon2id verification against a throwaway
// hash and always reports a mismatch. Login calls it for unknown usernames
// so the response time matches a wrong-password attempt.
func BurnPasswordCheck(password string) error {
	dummyOnce.Do(func() {
		if h, err := HashPassword(MustGenerateToken(TokenSize128)); err == nil {
			dummyHash = h
		}
	})

	if dummyHash != "" {
		_ = VerifyPassword(password, dummyHash)
	}
	return ErrPasswordMismatch
}
