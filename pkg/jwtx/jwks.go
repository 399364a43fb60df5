package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"math/big"
)

// JWK represents a public key in JSON Web Key format (RFC 7517). We only
// publish RSA signing keys, so only the RSA members are modelled.
type JWK struct {
	Kty string `json:"kty"`           // key type: "RSA"
	Use string `json:"use,omitempty"` // what we use it for: "sig"
	Alg string `json:"alg,omitempty"` // algorithm: "RS256"
	Kid string `json:"kid,omitempty"` // key ID

	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Find returns the key with the given kid.
func (s JWKS) Find(kid string) (JWK, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return JWK{}, false
}

// NewRSAJWK builds a JWK for an RSA public key.
func NewRSAJWK(kid, use, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: use,
		Alg: alg,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// RSAPublicKey decodes the modulus and exponent back into a usable key.
func (j JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if j.Kty != "RSA" {
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}

	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil || len(nb) == 0 {
		return nil, errors.New("jwtx: bad RSA modulus")
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil || len(eb) == 0 {
		return nil, errors.New("jwtx: bad RSA exponent")
	}

	n := new(big.Int).SetBytes(nb)
	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, errors.New("jwtx: bad RSA exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// PEM converts the JWK to PEM format for use with tools like jwt.io.
func (j JWK) PEM() (string, error) {
	pub, err := j.RSAPublicKey()
	if err != nil {
		return "", err
	}

	derBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	})), nil
}
