package jwtx

import "github.com/golang-jwt/jwt/v5"

// SignWithoutKID produces an RS256 token with no kid header, which the
// public signer never does.
func SignWithoutKID(s *RS256Signer, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
}
