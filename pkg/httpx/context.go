package httpx

import (
	"context"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyClaims    ctxKey = "claims"
	CtxKeyPrincipal ctxKey = "principal"
)

// UserIDFromContext returns the authenticated subject, whichever middleware
// established it (bearer verification or the trusted-header filter).
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromContext returns the verified token claims set by BearerAuth.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok && c != nil
}

func contextWithClaims(ctx context.Context, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}
