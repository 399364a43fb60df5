package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates tokens signed with the shared HMAC secret.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
}

func NewVerifierHS256(secret []byte, opts VerifyOptions) *HS256Verifier {
	return &HS256Verifier{secret: secret, opts: opts}
}

func (v *HS256Verifier) Verify(tokenStr string) (*Claims, error) {
	return parse(tokenStr, AlgorithmHS256, v.opts, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
}
