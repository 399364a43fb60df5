package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/platform/health"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"

	_ "github.com/aussiebroadwan/tollgate/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router owns the auth service's route table and the global middleware.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	keys     *jwtx.KeySet
	verifier jwtx.Verifier
	probe    health.Probe
	logger   *slog.Logger

	store       store.Store
	AuthService AuthService

	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// route is one row of the table in ApplyRoutes.
type route struct {
	pattern string
	handler http.Handler
	mws     []httpx.Middleware
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:         http.NewServeMux(),
		middlewares: []httpx.Middleware{slogx.HTTPMiddleware(logger)},
		keys:        keys,
		verifier:    verifier,
		probe:       health.Probe{Start: time.Now(), Version: buildVersion},
		store:       st,
		logger:      logger,
	}
}

// Use appends middlewares to the global chain. They run inside the
// request logger, in the order given. Call before ApplyRoutes.
func (r *Router) Use(mws ...httpx.Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// ApplyRoutes registers every endpoint with its rate-limit class and
// freezes the global chain.
//
// Credential endpoints are limited per IP to slow guessing. /me is limited
// per user once the bearer token is verified. JWKS and the probes get the
// high limits their pollers need.
func (r *Router) ApplyRoutes() {
	h := &AuthHandler{AuthService: r.AuthService}
	byIP := httpx.RateLimitByIP

	routes := []route{
		{"POST /api/auth/register", http.HandlerFunc(h.HandleRegister), []httpx.Middleware{byIP(httpx.StrictLimit)}},
		{"POST /api/auth/login", http.HandlerFunc(h.HandleLogin), []httpx.Middleware{byIP(httpx.StrictLimit)}},
		{"POST /api/auth/refresh-token", http.HandlerFunc(h.HandleRefresh), []httpx.Middleware{byIP(httpx.StrictLimit)}},
		{"POST /api/auth/logout", http.HandlerFunc(h.HandleLogout), []httpx.Middleware{byIP(httpx.ModerateLimit)}},
		{"GET /api/auth/me", http.HandlerFunc(h.HandleMe), []httpx.Middleware{
			httpx.BearerAuth(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		}},
		{"GET /.well-known/jwks.json", JWKSHandler(r.keys), []httpx.Middleware{byIP(httpx.PublicLimit)}},
		{"GET /livez", LivezHandler(r.probe), []httpx.Middleware{byIP(httpx.LenientLimit)}},
		{"GET /readyz", ReadyzHandler(r.probe, r.store, r.keys), []httpx.Middleware{byIP(httpx.LenientLimit)}},
		{"/swagger/", httpSwagger.Handler(), nil},
	}
	if r.Metrics != nil {
		routes = append(routes, route{"GET /metrics", r.Metrics, nil})
	}

	for _, rt := range routes {
		r.Mux.Handle(rt.pattern, httpx.Chain(rt.handler, rt.mws...))
	}
	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tollgate Authentication Service API
//	@version		0.1.0
//	@description	Token authority issuing short-lived access tokens and rotating single-use refresh tokens.
//	@description
//	@description				Access tokens are signed with RS256 and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tollgate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.handler == nil {
		http.Error(w, "routes not applied", http.StatusServiceUnavailable)
		return
	}
	r.handler.ServeHTTP(w, req)
}
