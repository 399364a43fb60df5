package routing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/tollgate/internal/gateway/routing"
	"github.com/stretchr/testify/require"
)

func TestAllowList_Defaults(t *testing.T) {
	a := routing.DefaultAllowList()

	tests := []struct {
		path string
		open bool
	}{
		{"/api/auth/login", true},
		{"/api/auth/login/", true},
		{"/api/auth/register", true},
		{"/api/auth/refresh-token", true},
		{"/.well-known/jwks.json", true},
		{"/livez", true},
		{"/swagger", true},
		{"/swagger/index.html", true},
		{"/docs/a/b", true},

		{"/api/auth/login-audit", false},
		{"/api/auth/login/extra", false},
		{"/api/auth/me", false},
		{"/api/auth/logout", false},
		{"/swaggerish", false},
		{"/api/assets/1?next=/api/auth/login", false},
		{"/api/auth/login/../../assets/1", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.open, a.IsOpen(tt.path))
		})
	}
}

func TestTable_LongestPrefix(t *testing.T) {
	table := routing.NewTable([]routing.Route{
		{Prefix: "/", Upstream: "http://default"},
		{Prefix: "/api/auth", Upstream: "http://auth"},
		{Prefix: "/api/auth/admin/", Upstream: "http://admin"},
	})

	tests := []struct {
		path     string
		upstream string
	}{
		{"/api/auth/login", "http://auth"},
		{"/api/auth", "http://auth"},
		{"/api/auth/admin/users", "http://admin"},
		{"/api/authz", "http://default"},
		{"/anything", "http://default"},
	}
	for _, tt := range tests {
		r, ok := table.Match(tt.path)
		require.True(t, ok, tt.path)
		require.Equal(t, tt.upstream, r.Upstream, tt.path)
	}

	_, ok := routing.NewTable([]routing.Route{{Prefix: "/api", Upstream: "http://x"}}).Match("/other")
	require.False(t, ok)
}

func TestParse(t *testing.T) {
	f, err := routing.Parse([]byte(`
routes:
  - prefix: /api/auth
    upstream: http://auth:8080
  - prefix: /api/assets
    upstream: http://assets:8081
    strip_prefix: true
open_prefixes: ["/public/"]
`))
	require.NoError(t, err)
	require.Len(t, f.Routes, 2)
	require.True(t, f.Routes[1].StripPrefix)

	a := f.AllowList()
	require.True(t, a.IsOpen("/api/auth/login")) // default paths kept
	require.True(t, a.IsOpen("/public/x"))
	require.False(t, a.IsOpen("/swagger/index.html")) // prefixes overridden
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no routes", `routes: []`},
		{"relative prefix", "routes:\n  - prefix: api\n    upstream: http://x"},
		{"relative upstream", "routes:\n  - prefix: /api\n    upstream: x:80"},
		{"duplicate", "routes:\n  - prefix: /api\n    upstream: http://x\n  - prefix: /api/\n    upstream: http://y"},
		{"not yaml", "routes: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := routing.Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(name, []byte("routes:\n  - prefix: /\n    upstream: http://up\nopen_paths: []\n"), 0o600))

	f, err := routing.LoadFile(name)
	require.NoError(t, err)
	require.False(t, f.AllowList().IsOpen("/livez"))

	_, err = routing.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, routing.SingleUpstream("http://up").Validate())
}
