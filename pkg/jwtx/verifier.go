package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// KeySource looks up a verification key by kid. KeySet is the in-memory
// implementation; the gateway plugs its fetching cache in here.
type KeySource interface {
	Get(kid string) (any, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain (claims.aud). Empty means "don't care".
	Audience []string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// DefaultKID is used when an RS256 token carries no "kid" header.
	DefaultKID string
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Header is the part of the JOSE header we route on.
type Header struct {
	Alg string
	KID string
}

// ParseHeader reads the JOSE header without verifying anything. Only use the
// result to decide how to verify, never as a verdict.
func ParseHeader(tokenStr string) (Header, error) {
	t, _, err := jwt.NewParser().ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	alg, _ := t.Header["alg"].(string)
	kid, _ := t.Header["kid"].(string)
	if alg == "" {
		return Header{}, fmt.Errorf("%w: missing alg", ErrMalformed)
	}
	return Header{Alg: alg, KID: kid}, nil
}

// parse runs the shared parse + claim checks for a single algorithm.
func parse(tokenStr, alg string, opts VerifyOptions, keyFunc jwt.Keyfunc) (*Claims, error) {
	h, err := ParseHeader(tokenStr)
	if err != nil {
		return nil, err
	}
	if h.Alg != alg {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrAlgMismatch, h.Alg, alg)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaim
	}

	if err := claims.Check(opts, time.Now()); err != nil {
		return nil, err
	}
	return claims, nil
}

// classify maps golang-jwt errors onto our sentinels while keeping the
// original text for logs.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrNoKey),
		errors.Is(err, ErrUnknownKID),
		errors.Is(err, ErrAlgMismatch):
		return fmt.Errorf("jwtx: parse or verify: %w", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	default:
		return fmt.Errorf("jwtx: parse or verify: %w", err)
	}
}
