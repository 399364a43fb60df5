// Package filter is the gateway's authentication step: it verifies bearer
// tokens against the authority's published keys and turns the claims into
// identity headers for upstream services.
package filter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/gateway/jwks"
	"github.com/aussiebroadwan/tollgate/internal/gateway/routing"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Outcomes reported to Verifier.OnDecision.
const (
	OutcomeOpen          = "open"
	OutcomeAuthenticated = "authenticated"
	OutcomeMissingToken  = "missing_token"
	OutcomeRejected      = "rejected"
)

// Verifier authenticates gateway requests.
type Verifier struct {
	keys  *jwks.Cache
	allow *routing.AllowList
	rs    *jwtx.RS256Verifier
	opts  jwtx.VerifyOptions

	// OnDecision, when set, is called once per request with an Outcome*.
	OnDecision func(outcome string)
}

// NewVerifier verifies RS256 tokens with keys from cache. opts carries the
// expected issuer and audience, the clock leeway and the kid assumed for
// tokens without one.
func NewVerifier(cache *jwks.Cache, allow *routing.AllowList, opts jwtx.VerifyOptions) *Verifier {
	return &Verifier{
		keys:  cache,
		allow: allow,
		rs:    jwtx.NewVerifierRS256(cache, opts),
		opts:  opts,
	}
}

// Authenticate verifies raw and returns its claims. The key is resolved
// (and fetched if need be) before the signature is checked.
func (v *Verifier) Authenticate(ctx context.Context, raw string) (*jwtx.Claims, error) {
	h, err := jwtx.ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	if h.Alg != jwtx.AlgorithmRS256 {
		return nil, fmt.Errorf("%w: %q", jwtx.ErrAlgMismatch, h.Alg)
	}

	kid := h.KID
	if kid == "" {
		kid = v.opts.DefaultKID
	}
	if _, err := v.keys.Key(ctx, kid); err != nil {
		return nil, err
	}

	return v.rs.Verify(raw)
}

// Middleware strips client-supplied identity headers from every request,
// lets allow-listed paths through, and requires a valid bearer token for
// everything else. Verified requests carry fresh identity headers.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)

		httpx.StripIdentityHeaders(r.Header)

		if v.allow.IsOpen(r.URL.Path) {
			v.decide(OutcomeOpen)
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := httpx.BearerToken(r)
		if !ok {
			v.decide(OutcomeMissingToken)
			httpx.WriteUnauthorized(w)
			return
		}

		claims, err := v.Authenticate(ctx, raw)
		if err != nil {
			v.decide(OutcomeRejected)
			log.Warn("token rejected",
				"req_id", slogx.RequestIDFromContext(ctx),
				"err", err,
			)
			httpx.WriteUnauthorized(w)
			return
		}

		p := httpx.NewPrincipal(claims.Subject, claims.DisplayUsername(), claims.Roles, claims.Permissions)
		p.WriteHeaders(r.Header)

		v.decide(OutcomeAuthenticated)
		next.ServeHTTP(w, r.WithContext(httpx.WithPrincipal(ctx, p)))
	})
}

func (v *Verifier) decide(outcome string) {
	if v.OnDecision != nil {
		v.OnDecision(outcome)
	}
}
