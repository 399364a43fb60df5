package jwtx

import (
	"crypto/rsa"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds public verification keys in memory, keyed by kid. The
// authority fills it from its own signer for JWKS publishing; verifiers
// read from it concurrently.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	pub map[string]*rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		pub: make(map[string]*rsa.PublicKey),
	}
}

// AddSigner registers a Publisher's public JWK into the KeySet.
func (k *KeySet) AddSigner(s Publisher) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds a JWK to the KeySet and parses it into a usable crypto key.
// Re-adding a kid replaces the previous key.
func (k *KeySet) AddJWK(j JWK) error {
	if j.Kid == "" {
		return errors.New("jwtx: JWK without kid")
	}
	key, err := j.RSAPublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.pub[j.Kid]; exists {
		keys := k.jks.Keys[:0:0]
		for _, existing := range k.jks.Keys {
			if existing.Kid != j.Kid {
				keys = append(keys, existing)
			}
		}
		k.jks.Keys = keys
	}
	k.pub[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a snapshot of the KeySet's JWKS for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([]JWK, len(k.jks.Keys))
	copy(keys, k.jks.Keys)
	return JWKS{Keys: keys}
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// Len returns the number of keys held.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub)
}

// ResetFromJWKS replaces all keys from a JWKS. Entries we cannot verify
// with (non-RSA, encryption keys, no kid) are skipped; a malformed RSA
// entry fails the whole reset and leaves the old set in place.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	newMap := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	kept := make([]JWK, 0, len(jwks.Keys))
	for _, j := range jwks.Keys {
		if j.Kty != "RSA" || j.Kid == "" || (j.Use != "" && j.Use != "sig") {
			continue
		}
		key, err := j.RSAPublicKey()
		if err != nil {
			return err
		}
		newMap[j.Kid] = key
		kept = append(kept, j)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.pub = newMap
	k.jks = JWKS{Keys: kept}

	return nil
}
