package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	httpapi "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/internal/platform/metrics"
	"github.com/aussiebroadwan/tollgate/internal/platform/server"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is reported by /livez, /readyz and every log line.
const BuildVersion = "v0.1.0"

// Application owns the auth service's dependencies from startup to shutdown.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	metrics    *Metrics

	authService *service.AuthService
	housekeeper *service.Housekeeper

	server *http.Server
	router *httpapi.Router
}

// New wires keys, storage, services and routes. Nothing listens until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: NewMetrics(),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	km, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("init signing keys: %w", err)
	}
	app.keyManager = km

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the fully wired HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run serves HTTP and runs housekeeping until ctx is cancelled, then drains
// the server and closes the database.
func (app *Application) Run(ctx context.Context) error {
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.housekeeper.Run(gctx) })
	g.Go(func() error {
		return server.Serve(gctx, app.server, app.cfg.ShutdownGracePeriod, app.logger)
	})
	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error("close database", "error", cerr)
		err = errors.Join(err, cerr)
	}

	app.logger.Info("auth service stopped")
	return err
}

// initDatabase opens SQLite and brings the schema up to date.
func (app *Application) initDatabase() error {
	dsn := sqlite.FileDSN(app.cfg.DatabaseFile)
	if app.cfg.DatabaseFile == ":memory:" {
		dsn = sqlite.MemoryDSN
	}

	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate database: %w", err)
	}

	if version, dirty, err := db.SchemaVersion(); err == nil {
		app.logger.Info("database ready", "schema_version", version, "dirty", dirty)
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:      app.db,
		Keys:       app.keyManager,
		Algorithm:  app.cfg.Algorithm,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
		Observer:   app.metrics,
	}

	app.housekeeper = service.NewHousekeeper(app.db, app.logger, app.cfg.HousekeepingInterval)
	app.housekeeper.OnSweep = app.metrics.ObserveSweep
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.Metrics = metrics.Handler(app.metrics.Registry)
	router.Use(app.metrics.HTTP.Middleware(metrics.PatternRoute))
	router.ApplyRoutes()

	app.router = router
	app.server = server.New(app.cfg.Port, router)
}
