package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/relooptech/reloop/internal/auth/http"
	"github.com/relooptech/reloop/internal/auth/service"
	"github.com/relooptech/reloop/internal/auth/store"
	"github.com/relooptech/reloop/internal/auth/store/drivers/sqlite"
	"github.com/relooptech/reloop/pkg/cryptox"
	"github.com/relooptech/reloop/pkg/jwtx"
	"github.com/relooptech/reloop/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the auth service together: store, crypto, services
// and the HTTP server. Everything is constructed explicitly here; no
// package carries hidden lazily-initialized state.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.HS256
	hasher *cryptox.Hasher

	authService         *service.AuthService
	tokenService        *service.TokenService
	mfaService          *service.MFAService
	registrationService *service.RegistrationService
	approvalService     *service.ApprovalService
	accountService      *service.AccountService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "reloop-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	signer, err := jwtx.NewHS256([]byte(cfg.SigningSecret), cfg.Issuer)
	if err != nil {
		return nil, err
	}
	app.signer = signer

	pepper, err := cryptox.LoadOrGeneratePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	notifier := service.LogNotifier{}

	app.tokenService = &service.TokenService{
		Signer: app.signer,
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.TokenTTL,
	}

	lockout := service.NewLockoutGuard(app.db, notifier, app.cfg.LockoutThresh, app.cfg.LockoutDuration)

	app.authService = &service.AuthService{
		Store:        app.db,
		Hasher:       app.hasher,
		Tokens:       app.tokenService,
		Lockout:      lockout,
		ChallengeTTL: app.cfg.ChallengeTTL,
		TOTPSkew:     app.cfg.TOTPSkew,
	}

	app.mfaService = &service.MFAService{
		Store:    app.db,
		Issuer:   app.cfg.Issuer,
		TOTPSkew: app.cfg.TOTPSkew,
	}

	app.registrationService = &service.RegistrationService{
		Store:    app.db,
		Hasher:   app.hasher,
		Notifier: notifier,
	}

	app.approvalService = &service.ApprovalService{
		Store:    app.db,
		Notifier: notifier,
	}

	app.accountService = &service.AccountService{
		Store:    app.db,
		Notifier: notifier,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.MFAService = app.mfaService
	router.RegistrationService = app.registrationService
	router.ApprovalService = app.approvalService
	router.AccountService = app.accountService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the configured router, mainly for tests that want to
// run the full HTTP surface against httptest.
func (app *Application) Handler() http.Handler {
	return app.router
}
