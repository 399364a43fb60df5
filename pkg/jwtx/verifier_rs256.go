package jwtx

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier checks RS256 tokens against public keys looked up by kid.
// It is what resource servers use: it never needs the signing secret.
type RS256Verifier struct {
	keys KeySource
	opts VerifyOptions
}

func NewVerifierRS256(keys KeySource, opts VerifyOptions) *RS256Verifier {
	return &RS256Verifier{keys: keys, opts: opts}
}

func (v *RS256Verifier) Verify(tokenStr string) (*Claims, error) {
	return parse(tokenStr, AlgorithmRS256, v.opts, v.publicKey)
}

// publicKey resolves the token's kid, or opts.DefaultKID when the header
// has none, to an *rsa.PublicKey.
func (v *RS256Verifier) publicKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		kid = v.opts.DefaultKID
	}
	if kid == "" {
		return nil, fmt.Errorf("%w: no kid in header and no default", ErrUnknownKID)
	}

	k, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("kid %q: %w", kid, err)
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: kid %q is %T, not an RSA key", ErrAlgMismatch, kid, k)
	}
	return pub, nil
}
