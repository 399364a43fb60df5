package routing

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Route maps a path prefix onto an upstream base URL.
type Route struct {
	Prefix      string `yaml:"prefix"`
	Upstream    string `yaml:"upstream"`
	StripPrefix bool   `yaml:"strip_prefix"`
}

// File is the gateway routes file.
//
//	routes:
//	  - prefix: /api/auth
//	    upstream: http://auth:8080
//	open_paths: ["/api/auth/register"]
//	open_prefixes: ["/swagger/"]
//
// Nil open_paths/open_prefixes keep the defaults; an explicit empty list
// closes everything.
type File struct {
	Routes       []Route  `yaml:"routes"`
	OpenPaths    []string `yaml:"open_paths"`
	OpenPrefixes []string `yaml:"open_prefixes"`
}

var ErrNoRoutes = errors.New("routing: no routes configured")

// LoadFile reads and validates a routes file.
func LoadFile(name string) (*File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("routing: read %s: %w", name, err)
	}
	return Parse(data)
}

// Parse decodes and validates routes file content.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("routing: parse routes: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// SingleUpstream is the routes file implied by GATEWAY_UPSTREAM_URL alone.
func SingleUpstream(upstream string) *File {
	return &File{Routes: []Route{{Prefix: "/", Upstream: upstream}}}
}

// Validate checks every route has a usable prefix and absolute upstream.
func (f *File) Validate() error {
	if len(f.Routes) == 0 {
		return ErrNoRoutes
	}
	seen := make(map[string]bool, len(f.Routes))
	for i, r := range f.Routes {
		if r.Prefix == "" || r.Prefix[0] != '/' {
			return fmt.Errorf("routing: route %d: prefix %q must start with '/'", i, r.Prefix)
		}
		u, err := url.Parse(r.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("routing: route %d: upstream %q must be an absolute URL", i, r.Upstream)
		}
		p := cleanPath(r.Prefix)
		if seen[p] {
			return fmt.Errorf("routing: duplicate prefix %q", r.Prefix)
		}
		seen[p] = true
	}
	return nil
}

// AllowList builds the allow-list, falling back to the defaults for any
// list the file leaves unset.
func (f *File) AllowList() *AllowList {
	paths, prefixes := f.OpenPaths, f.OpenPrefixes
	if paths == nil {
		paths = DefaultOpenPaths
	}
	if prefixes == nil {
		prefixes = DefaultOpenPrefixes
	}
	return NewAllowList(paths, prefixes)
}

// Table picks the longest matching route prefix for a path.
type Table struct {
	routes []Route // longest prefix first
}

// NewTable orders routes for longest-prefix matching.
func NewTable(routes []Route) *Table {
	sorted := make([]Route, len(routes))
	for i, r := range routes {
		r.Prefix = cleanPath(r.Prefix)
		sorted[i] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Table{routes: sorted}
}

// Routes returns the routes with cleaned prefixes, longest first.
func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}

// Match returns the route serving p, matching on whole segments.
func (t *Table) Match(p string) (Route, bool) {
	p = cleanPath(p)
	for _, r := range t.routes {
		if hasSegmentPrefix(p, r.Prefix) {
			return r, true
		}
	}
	return Route{}, false
}
