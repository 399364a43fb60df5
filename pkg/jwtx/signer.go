package jwtx

// Supported JWT signing algorithms
const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Validate() error
}

// Publisher is a Signer whose verification key can be published in a JWKS.
// The HMAC signer deliberately isn't one.
type Publisher interface {
	Signer
	PublicJWK() JWK
}
