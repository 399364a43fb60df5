package jwtx

import (
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Signer implements the Signer interface using RSA SHA-256.
type RS256Signer struct {
	kid string
	key *rsa.PrivateKey
	pub *rsa.PublicKey
}

// NewSignerRS256 wraps an RSA private key. The kid is stamped into every
// token header so verifiers can pick the key out of the JWKS.
func NewSignerRS256(kid string, key *rsa.PrivateKey) (*RS256Signer, error) {
	if key == nil {
		return nil, errors.New("jwtx: nil RSA key")
	}
	if kid == "" {
		return nil, errors.New("jwtx: RSA signer needs a kid")
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return &RS256Signer{kid: kid, key: key, pub: &key.PublicKey}, nil
}

func (s *RS256Signer) Alg() string { return AlgorithmRS256 }
func (s *RS256Signer) KID() string { return s.kid }

// Sign takes your claims and turns them into a signed JWT string.
func (s *RS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the JWK we publish so others can verify our tokens.
func (s *RS256Signer) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", AlgorithmRS256, s.pub)
}

// Validate does a quick sanity check to make sure we actually have keys.
func (s *RS256Signer) Validate() error {
	if s.key == nil || s.pub == nil {
		return errors.New("jwtx: nil RSA key")
	}
	return nil
}
