package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	auth "github.com/salesreport/go-auth"
	"github.com/salesreport/go-auth/activitymap"
	"github.com/salesreport/go-auth/config"
	"github.com/salesreport/go-auth/metrics"
	"github.com/salesreport/go-auth/middleware/jwtware"
	"github.com/salesreport/go-auth/repository"
	"github.com/salesreport/go-auth/salespersons"
)

type App struct {
	config   *config.Config
	logger   *auth.ZapLogger
	bunDB    *bun.DB
	repo     auth.RepositoryManager
	auther   *auth.Auther
	httpAuth *auth.RouteAuthenticator
	registry *prometheus.Registry
	sink     auth.ActivitySink
	srv      router.Server[*fiber.App]
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) GetLogger(name string) auth.Logger {
	return a.logger.GetLogger(name)
}

// NewApp builds the zap logger from cfg and installs it as the global
// logger so package defaults log through it too.
func NewApp(cfg *config.Config) (*App, error) {
	zl, err := newZapLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(zl)

	app := &App{
		config: cfg,
		logger: auth.NewZapLogger(zl),
	}

	if cfg.Debug {
		sanitized := *cfg
		sanitized.JWTSecret = "********"
		app.GetLogger("config").Debug("loaded configuration", "config", print.MaybePrettyJSON(sanitized))
	}

	return app, nil
}

func newZapLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

func storeOptions(cfg config.StoreConfig) repository.Options {
	return repository.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DatabaseURL,
		Debug:  cfg.DBDebug,
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := repository.Open(storeOptions(app.config.StoreConfig))
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("connect %s store: %w", app.config.DBDriver, err)
	}

	applied, err := repository.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	if len(applied) > 0 {
		app.GetLogger("persistence").Info("applied migrations", "migrations", applied)
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		_ = db.Close()
		return err
	}

	app.bunDB = db
	app.repo = repo
	return nil
}

func WithActivity(app *App) error {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := metrics.NewCollector(app.registry)
	if err != nil {
		return err
	}

	app.sink = auth.MultiActivitySink{
		activitymap.NewLogSink(app.GetLogger("audit")),
		collector,
	}
	return nil
}

func WithHTTPAuth(app *App) error {
	cfg := app.Config()
	principals := app.repo.Principals()

	tokens, err := auth.NewTokenServiceFromConfig(cfg, principals,
		auth.WithTokenLogger(app.GetLogger("auth:tokens")),
	)
	if err != nil {
		return err
	}

	verifier := auth.NewPrincipalProvider(principals).
		WithLogger(app.GetLogger("auth:prv")).
		WithPasswordAuthenticator(auth.NewBcryptHasher(cfg.BcryptCost))

	app.auther = auth.NewAuthenticator(principals, tokens).
		WithLogger(app.GetLogger("auth:authn")).
		WithCredentialVerifier(verifier).
		WithActivitySink(app.sink)

	app.httpAuth = auth.NewHTTPAuthenticator(app.auther, auth.NewGuard(auth.DefaultOperationPolicy()), cfg).
		WithLogger(app.GetLogger("auth:http")).
		WithActivitySink(app.sink).
		WithValidationListeners(tagPrincipal)

	return nil
}

// tagPrincipal exposes the principal id to the access log.
func tagPrincipal(c router.Context, p jwtware.AuthPrincipal) error {
	c.Locals(principalLocal, p.Subject())
	return nil
}

const principalLocal = "principal_id"

// WithHTTPServer builds the router on a fiber app. Request scoped fiber
// middleware (recovery, request ids, access log, login rate limit) is
// installed on the app before any route is registered.
func WithHTTPServer(app *App) error {
	cfg := app.Config()
	httpLogger := app.GetLogger("http")

	app.srv = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		srv := fiber.New(fiber.Config{
			AppName:               "salesauth",
			ReadTimeout:           cfg.HTTPReadTimeout,
			WriteTimeout:          cfg.HTTPWriteTimeout,
			ErrorHandler:          auth.NewFiberErrorHandler(httpLogger),
			DisableStartupMessage: !cfg.Debug,
			EnablePrintRoutes:     cfg.Debug,
		})

		srv.Use(recover.New(recover.Config{EnableStackTrace: cfg.Debug}))
		srv.Use(requestid.New())
		srv.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path} ${locals:" + principalLocal + "}\n",
		}))

		if cfg.LoginRateLimit > 0 {
			srv.Use(auth.LoginPath, loginLimiter(cfg.LoginRateLimit, app.GetLogger("auth:limiter")))
		}
		return srv
	})

	r := app.srv.Router().WithLogger(app.GetLogger("router"))

	r.Get("/healthz", func(c router.Context) error {
		if err := app.bunDB.PingContext(c.Context()); err != nil {
			httpLogger.Warn("health check failed", "error", err)
			return c.JSON(router.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(router.StatusOK, map[string]string{"status": "ok"})
	}).SetName("system.health")

	return nil
}

// loginLimiter caps login attempts per client IP. Rejections surface as
// fiber's 429 error and render through the app error handler.
func loginLimiter(limit int, logger auth.Logger) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			logger.Warn("login rate limit reached", "ip", c.IP())
			return fiber.ErrTooManyRequests
		},
	})
}

func Routes(app *App) {
	cfg := app.Config()
	r := app.srv.Router()

	auth.RegisterAuthRoutes(r,
		auth.WithAuthenticator(app.auther, app.httpAuth),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithDebug(cfg.Debug),
	)

	salespersons.RegisterRoutes(r, app.repo.Principals(), app.httpAuth,
		salespersons.WithLogger(app.GetLogger("salespersons")),
	)

	r.Get("/metrics", metrics.Handler(app.registry),
		app.httpAuth.ProtectedRoute(auth.OperationMetrics),
	).SetName(string(auth.OperationMetrics))
}

// Serve listens until ctx is cancelled, then drains in flight requests.
func (a *App) Serve(ctx context.Context) error {
	logger := a.GetLogger("server")
	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening", "addr", a.config.HTTPAddr)
		errCh <- a.srv.Serve(a.config.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) Close() error {
	var err error
	if a.bunDB != nil {
		err = a.bunDB.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}
