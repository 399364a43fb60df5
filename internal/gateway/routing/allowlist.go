// Package routing decides which gateway paths are open and which upstream
// serves a request.
package routing

import (
	"path"
	"strings"
)

// DefaultOpenPaths are reachable without a bearer token.
var DefaultOpenPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/refresh-token",
	"/.well-known/jwks.json",
	"/livez",
	"/readyz",
	"/metrics",
}

// DefaultOpenPrefixes open whole subtrees.
var DefaultOpenPrefixes = []string{
	"/swagger/",
	"/docs/",
}

// AllowList matches request paths against open paths and prefixes on whole
// segments, so "/api/auth/login-audit" is not covered by "/api/auth/login".
type AllowList struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewAllowList builds an allow-list. Paths are cleaned; prefixes are
// stored without their trailing slash.
func NewAllowList(paths, prefixes []string) *AllowList {
	a := &AllowList{exact: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			a.exact[cleanPath(p)] = struct{}{}
		}
	}
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			a.prefixes = append(a.prefixes, cleanPath(p))
		}
	}
	return a
}

// DefaultAllowList is the allow-list used when no routes file overrides it.
func DefaultAllowList() *AllowList {
	return NewAllowList(DefaultOpenPaths, DefaultOpenPrefixes)
}

// IsOpen reports whether p may be forwarded without authentication.
func (a *AllowList) IsOpen(p string) bool {
	p = cleanPath(p)
	if _, ok := a.exact[p]; ok {
		return true
	}
	for _, prefix := range a.prefixes {
		if hasSegmentPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// cleanPath resolves dot segments and drops any trailing slash so
// "/livez/" and "/a/../livez" compare equal to "/livez".
func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// hasSegmentPrefix reports whether prefix covers p on a segment boundary.
// Both arguments must already be cleaned.
func hasSegmentPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}
