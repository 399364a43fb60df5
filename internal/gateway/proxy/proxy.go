// Package proxy forwards authenticated gateway traffic to upstream services.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/gateway/routing"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Proxy routes each request to the upstream with the longest matching
// prefix. It has one ReverseProxy per route.
type Proxy struct {
	table   *routing.Table
	proxies map[string]*httputil.ReverseProxy
}

// New builds a Proxy over routes. Transport may be nil for the default.
func New(routes []routing.Route, transport http.RoundTripper) (*Proxy, error) {
	p := &Proxy{
		table:   routing.NewTable(routes),
		proxies: make(map[string]*httputil.ReverseProxy, len(routes)),
	}

	for _, r := range p.table.Routes() {
		target, err := url.Parse(r.Upstream)
		if err != nil {
			return nil, fmt.Errorf("proxy: upstream %q: %w", r.Upstream, err)
		}
		p.proxies[r.Prefix] = newReverseProxy(target, r, transport)
	}
	return p, nil
}

func newReverseProxy(target *url.URL, route routing.Route, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if route.StripPrefix && route.Prefix != "/" {
				pr.Out.URL.Path = ensureLeadingSlash(strings.TrimPrefix(pr.In.URL.Path, route.Prefix))
				pr.Out.URL.RawPath = ""
			}
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slogx.FromContext(r.Context()).Error("upstream request failed",
				"upstream", target.Host,
				"err", err,
			)
			authsdk.ErrBadGateway.WriteError(w)
		},
	}
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := p.table.Match(r.URL.Path)
	if !ok {
		httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": authsdk.ErrorCodeNotFound})
		return
	}
	p.proxies[route.Prefix].ServeHTTP(w, r)
}

func ensureLeadingSlash(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
