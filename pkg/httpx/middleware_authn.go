package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// BearerToken pulls the token out of "Authorization: Bearer <token>". The
// scheme is matched case-insensitively; an empty token is a miss.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// BearerAuth verifies the bearer token with v and puts the claims in the
// request context. Every failure gets the same 401 body; the cause is only
// logged.
func BearerAuth(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				WriteUnauthorized(w)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithClaims(ctx, claims)))
		})
	}
}

// WriteUnauthorized writes the generic RFC 6750 invalid_token response.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "unauthorized",
		"error_description": "authentication required",
	})
}

// WriteForbidden is the 403 counterpart for authenticated callers lacking
// an authority.
func WriteForbidden(w http.ResponseWriter) {
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "forbidden",
		"error_description": "insufficient authority",
	})
}
