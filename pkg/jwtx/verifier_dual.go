package jwtx

import "fmt"

// DualVerifier accepts either of our two token schemes. It routes on the
// alg header and then defers to the matching verifier, which re-checks the
// alg before trusting anything.
type DualVerifier struct {
	hs *HS256Verifier
	rs *RS256Verifier
}

func NewDualVerifier(hs *HS256Verifier, rs *RS256Verifier) *DualVerifier {
	return &DualVerifier{hs: hs, rs: rs}
}

func (v *DualVerifier) Verify(tokenStr string) (*Claims, error) {
	h, err := ParseHeader(tokenStr)
	if err != nil {
		return nil, err
	}

	switch h.Alg {
	case AlgorithmHS256:
		if v.hs != nil {
			return v.hs.Verify(tokenStr)
		}
	case AlgorithmRS256:
		if v.rs != nil {
			return v.rs.Verify(tokenStr)
		}
	}
	return nil, fmt.Errorf("%w: %q not accepted", ErrAlgMismatch, h.Alg)
}
