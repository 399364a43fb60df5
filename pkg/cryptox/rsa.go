package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
)

// MinRSABits is the smallest modulus accepted for signing keys.
const MinRSABits = 2048

// ErrWeakRSAKey is returned for a modulus below MinRSABits.
var ErrWeakRSAKey = errors.New("cryptox: RSA key too small")

// GenerateRSAKey returns a fresh keypair of the given size.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("%w: %d bits, need at least %d", ErrWeakRSAKey, bits, MinRSABits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate RSA key: %w", err)
	}
	return key, nil
}
