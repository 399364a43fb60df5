package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/tollgate/internal/gateway/filter"
	"github.com/aussiebroadwan/tollgate/internal/gateway/jwks"
	"github.com/aussiebroadwan/tollgate/internal/gateway/proxy"
	"github.com/aussiebroadwan/tollgate/internal/gateway/routing"
	"github.com/aussiebroadwan/tollgate/internal/platform/health"
	"github.com/aussiebroadwan/tollgate/internal/platform/metrics"
	"github.com/aussiebroadwan/tollgate/internal/platform/server"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// BuildVersion is reported by the health probes and in logs.
const BuildVersion = "v0.1.0"

// Application is the gateway: system routes plus an authenticating reverse
// proxy in front of the configured upstreams.
type Application struct {
	cfg       Config
	logger    *slog.Logger
	metrics   *Metrics
	startTime time.Time

	keys     *jwks.Cache
	redis    *redis.Client
	verifier *filter.Verifier
	proxy    *proxy.Proxy

	router chi.Router
	server *http.Server
}

// New wires the gateway. The key cache starts empty; the first protected
// request (or /readyz) fills it.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics:   NewMetrics(),
		startTime: time.Now(),
	}

	routes, err := app.loadRoutes()
	if err != nil {
		return nil, err
	}

	if err := app.initKeys(); err != nil {
		return nil, err
	}

	app.verifier = filter.NewVerifier(app.keys, routes.AllowList(), jwtx.VerifyOptions{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		Leeway:     cfg.ClockLeeway,
		DefaultKID: cfg.DefaultKID,
	})
	app.verifier.OnDecision = app.metrics.ObserveDecision

	app.proxy, err = proxy.New(routes.Routes, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy: %w", err)
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the fully wired HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// closes the redis client.
func (app *Application) Run(ctx context.Context) error {
	app.logger.Info("gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"jwks_uri", app.cfg.JWKSURI,
	)

	err := server.Serve(ctx, app.server, app.cfg.ShutdownGracePeriod, app.logger)

	if app.redis != nil {
		if cerr := app.redis.Close(); cerr != nil {
			app.logger.Error("close redis", "error", cerr)
		}
	}

	app.logger.Info("gateway stopped")
	return err
}

func (app *Application) loadRoutes() (*routing.File, error) {
	if app.cfg.RoutesFile == "" {
		f := routing.SingleUpstream(app.cfg.UpstreamURL)
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("invalid upstream: %w", err)
		}
		return f, nil
	}

	f, err := routing.LoadFile(app.cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	app.logger.Info("routes loaded", "file", app.cfg.RoutesFile, "routes", len(f.Routes))
	return f, nil
}

// initKeys builds the JWKS fetch chain: authority over HTTP, optionally
// fronted by a shared redis copy.
func (app *Application) initKeys() error {
	fetch, err := jwks.HTTPFetcher(app.cfg.JWKSURI)
	if err != nil {
		return fmt.Errorf("invalid JWKS URI: %w", err)
	}

	if app.cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.JWKSTimeout)
		defer cancel()

		client, err := jwks.NewRedisClient(ctx, app.cfg.RedisAddr)
		if err != nil {
			// The tier is optional; run without it rather than refuse to start.
			app.logger.Warn("redis unavailable, JWKS cache is local only", "addr", app.cfg.RedisAddr, "error", err)
		} else {
			app.redis = client
			tier := &jwks.RedisTier{
				Client: client,
				TTL:    app.cfg.RedisTTL,
				Next:   fetch,
				Logger: app.logger,
			}
			fetch = tier.Fetch
		}
	}

	app.keys = jwks.NewCache(fetch, jwks.Options{
		Timeout:    app.cfg.JWKSTimeout,
		MinRefresh: app.cfg.JWKSMinRefresh,
		OnFetch:    app.metrics.ObserveFetch,
	})
	return nil
}

func (app *Application) initHTTP() {
	r := chi.NewRouter()
	r.Use(slogx.HTTPMiddleware(app.logger))
	r.Use(app.metrics.HTTP.Middleware(chiRoute))

	probe := health.Probe{Start: app.startTime, Version: BuildVersion}
	r.Get("/livez", probe.Livez())
	r.Get("/readyz", probe.Readyz(map[string]health.Check{"jwks": app.jwksCheck}))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(app.metrics.Registry))

	r.Handle("/*", app.verifier.Middleware(app.proxy))

	app.router = r
	app.server = server.New(app.cfg.Port, r)
}

// jwksCheck passes once keys have been loaded. Before that it resolves the
// default kid, which fetches subject to the refresh throttle.
func (app *Application) jwksCheck(ctx context.Context) error {
	if app.keys.Ready() {
		return nil
	}
	_, err := app.keys.Key(ctx, app.cfg.DefaultKID)
	return err
}
