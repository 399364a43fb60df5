package httpx

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

// Identity headers set by the gateway after it has verified a token.
const (
	HeaderUserID      = "X-Auth-User-ID"
	HeaderUsername    = "X-Auth-Username"
	HeaderRoles       = "X-Auth-Roles"
	HeaderPermissions = "X-Auth-Permissions"

	identityHeaderPrefix = "x-auth-"
)

// RolePrefix marks role authorities, so "USER" becomes "ROLE_USER".
const RolePrefix = "ROLE_"

// Principal is the caller identity as asserted by the gateway.
type Principal struct {
	UserID      string
	Username    string
	Roles       []string
	Permissions []string

	// Authorities are ROLE_-prefixed roles followed by the raw permissions.
	Authorities []string
}

// NewPrincipal builds a Principal and its authority list. Roles that
// already carry the prefix are not prefixed twice.
func NewPrincipal(userID, username string, roles, permissions []string) Principal {
	p := Principal{
		UserID:      userID,
		Username:    username,
		Roles:       roles,
		Permissions: permissions,
		Authorities: make([]string, 0, len(roles)+len(permissions)),
	}
	for _, r := range roles {
		if !strings.HasPrefix(r, RolePrefix) {
			r = RolePrefix + r
		}
		p.Authorities = append(p.Authorities, r)
	}
	p.Authorities = append(p.Authorities, permissions...)
	return p
}

// HasAuthority reports whether the principal holds a (ROLE_ or permission).
func (p Principal) HasAuthority(a string) bool {
	return slices.Contains(p.Authorities, a)
}

// HasAnyAuthority reports whether the principal holds at least one of as.
func (p Principal) HasAnyAuthority(as ...string) bool {
	return slices.ContainsFunc(as, p.HasAuthority)
}

// HasRole accepts the role with or without the ROLE_ prefix.
func (p Principal) HasRole(role string) bool {
	if !strings.HasPrefix(role, RolePrefix) {
		role = RolePrefix + role
	}
	return p.HasAuthority(role)
}

// RoleNames returns the role authorities with the prefix stripped.
func (p Principal) RoleNames() []string {
	var names []string
	for _, a := range p.Authorities {
		if name, ok := strings.CutPrefix(a, RolePrefix); ok {
			names = append(names, name)
		}
	}
	return names
}

// WriteHeaders sets the identity headers for an upstream request. Empty
// role or permission lists leave their header unset.
func (p Principal) WriteHeaders(h http.Header) {
	h.Set(HeaderUserID, p.UserID)
	h.Set(HeaderUsername, p.Username)
	if len(p.Roles) > 0 {
		h.Set(HeaderRoles, strings.Join(p.Roles, ","))
	}
	if len(p.Permissions) > 0 {
		h.Set(HeaderPermissions, strings.Join(p.Permissions, ","))
	}
}

// StripIdentityHeaders removes every X-Auth-* header regardless of case.
func StripIdentityHeaders(h http.Header) {
	for k := range h {
		if strings.HasPrefix(strings.ToLower(k), identityHeaderPrefix) {
			delete(h, k)
		}
	}
}

// PrincipalFromHeaders reads the gateway's identity headers. Both the user
// id and the username must be present.
func PrincipalFromHeaders(h http.Header) (Principal, bool) {
	userID := strings.TrimSpace(h.Get(HeaderUserID))
	username := strings.TrimSpace(h.Get(HeaderUsername))
	if userID == "" || username == "" {
		return Principal{}, false
	}
	return NewPrincipal(userID, username, splitList(h.Get(HeaderRoles)), splitList(h.Get(HeaderPermissions))), true
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, p.UserID)
	return context.WithValue(ctx, CtxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal placed by TrustedIdentity.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(Principal)
	return p, ok
}

// TrustedIdentity is for services sitting behind the gateway. It performs
// no cryptography: the headers are trusted because the gateway strips and
// rewrites them on every request. Requests without them carry on
// unauthenticated.
func TrustedIdentity() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := PrincipalFromHeaders(r.Header); ok {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated rejects requests with no principal (401).
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				WriteUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyAuthority needs a principal holding at least one of the given
// authorities: 401 without a principal, 403 without the authority.
func RequireAnyAuthority(authorities ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteUnauthorized(w)
				return
			}
			if !p.HasAnyAuthority(authorities...) {
				WriteForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
