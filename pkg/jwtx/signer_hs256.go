package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Signer signs with a shared HMAC secret. Only holders of the secret
// can verify these tokens, so they stay inside the authority.
type HS256Signer struct {
	kid    string
	secret []byte
}

// NewSignerHS256 returns an HMAC signer. The secret must already be decoded
// key material (see cryptox.DecodeSecret).
func NewSignerHS256(kid string, secret []byte) (*HS256Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty HMAC secret")
	}
	return &HS256Signer{kid: kid, secret: secret}, nil
}

func (s *HS256Signer) Alg() string { return AlgorithmHS256 }
func (s *HS256Signer) KID() string { return s.kid }

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	return t.SignedString(s.secret)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) == 0 {
		return errors.New("jwtx: empty HMAC secret")
	}
	return nil
}
