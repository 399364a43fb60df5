package jwtx

import (
	"fmt"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// DefaultKeyID is the kid stamped on RS256 tokens when none is configured.
const DefaultKeyID = "tollgate-auth-key"

// KeyManager owns the authority's key material: an HMAC key for internal
// tokens and an RSA keypair whose public half is published as a JWKS.
// Both are created at startup and live only in memory.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *DualVerifier

	hmac *HS256Signer
	rsa  *RS256Signer

	issuer   string
	audience []string
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Secret is the HMAC secret, base64 or raw; at least 32 bytes decoded.
	Secret string

	// KeyID is the kid of the RSA key. Defaults to DefaultKeyID.
	KeyID string

	// Issuer is the issuer claim (iss) that will be validated in tokens.
	Issuer string

	// Audience is the list of audience values (aud) that will be validated.
	// Empty slice means no audience validation.
	Audience []string

	// RSABits specifies the RSA key size. Defaults to 2048, must be at least 2048.
	RSABits int
}

// NewKeyManager derives the HMAC key from the secret, generates the RSA
// keypair, and wires both into a KeySet and a DualVerifier.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.KeyID == "" {
		opts.KeyID = DefaultKeyID
	}
	if opts.RSABits == 0 {
		opts.RSABits = cryptox.MinRSABits
	}

	secret, err := cryptox.DecodeSecret(opts.Secret)
	if err != nil {
		return nil, fmt.Errorf("jwtx: token secret: %w", err)
	}
	hs, err := NewSignerHS256("", secret)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.GenerateRSAKey(opts.RSABits)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to generate RS256 key: %w", err)
	}
	rs, err := NewSignerRS256(opts.KeyID, key)
	if err != nil {
		return nil, err
	}

	keyset := NewKeySet()
	if err := keyset.AddSigner(rs); err != nil {
		return nil, fmt.Errorf("jwtx: failed to add signer to keyset: %w", err)
	}

	vopts := VerifyOptions{Issuer: opts.Issuer, Audience: opts.Audience}

	return &KeyManager{
		KeySet: keyset,
		Verifier: NewDualVerifier(
			NewVerifierHS256(secret, vopts),
			NewVerifierRS256(keyset, vopts),
		),
		hmac:     hs,
		rsa:      rs,
		issuer:   opts.Issuer,
		audience: opts.Audience,
	}, nil
}

// HMAC returns the internal HS256 signer.
func (km *KeyManager) HMAC() Signer { return km.hmac }

// RSA returns the public RS256 signer.
func (km *KeyManager) RSA() Publisher { return km.rsa }

// Signer picks the signer for a configured algorithm name.
func (km *KeyManager) Signer(alg string) (Signer, error) {
	switch alg {
	case AlgorithmRS256, "":
		return km.rsa, nil
	case AlgorithmHS256:
		return km.hmac, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, HS256)", alg)
	}
}

// PublicJWKS is what /.well-known/jwks.json serves.
func (km *KeyManager) PublicJWKS() JWKS { return km.KeySet.PublicJWKS() }

func (km *KeyManager) Issuer() string     { return km.issuer }
func (km *KeyManager) Audience() []string { return km.audience }

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady() && km.hmac.Validate() == nil && km.rsa.Validate() == nil
}
