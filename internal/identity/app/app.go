package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/stshume/ohh-marketplace-auth-service/internal/identity/http"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/notify"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "identity-service"
)

// Application encapsulates the identity service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	hasher     cryptox.PasswordHasher
	broker     mq.Backend // nil unless NOTIFIER is rabbitmq or pubsub
	dispatcher *notify.Dispatcher

	// Services
	credentialService   *service.CredentialService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the structured logger shared by every command.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	keyManager, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	hasher, err := cryptox.NewPasswordHasher(app.cfg.PasswordHashAlgorithm, app.cfg.PasswordHashCost)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	app.hasher = hasher

	if err := app.initNotifier(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.dispatcher.Start()
	app.housekeepingService.Start()

	app.logger.Info("identity service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"notifier", app.cfg.Notifier,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
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

// Shutdown stops the server first so no new mail is queued, then drains the
// dispatcher before closing the broker and the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.dispatcher.Stop(ctx); err != nil {
		app.logger.Warn("notification queue not drained", "error", err, "pending", app.dispatcher.Pending())
	}

	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Error("error closing message broker", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initNotifier(ctx context.Context) error {
	n, broker, err := newNotifier(ctx, app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	app.broker = broker
	app.dispatcher = notify.NewDispatcher(n, app.logger, app.cfg.NotifierWorkers, app.cfg.NotifierQueueSize)

	app.logger.Info("notifier ready", "notifier", app.cfg.Notifier, "workers", app.cfg.NotifierWorkers)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Hasher: app.hasher,
		Sessions: &service.SessionIssuer{
			KeyManager: app.keyManager,
			Issuer:     app.cfg.Issuer,
			TTL:        app.cfg.SessionTokenTTL,
		},
		Mailer: app.dispatcher,
		Config: service.Config{
			ResetTokenTTL:   app.cfg.ResetTokenTTL,
			NotifierBaseURL: app.cfg.NotifierBaseURL,
			NotifierFrom:    app.cfg.NotifierFrom,
		},
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
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
	router.Credentials = app.credentialService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// RunMailer relays queued notifications from the broker to SMTP until ctx
// is cancelled.
func RunMailer(ctx context.Context, cfg Config) error {
	logger := NewLogger(cfg)

	smtp, err := notify.NewSMTPNotifier(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to initialize smtp: %w", err)
	}

	broker, err := OpenBroker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Notifier, err)
	}
	defer broker.Close()

	relay := &notify.Relay{
		Subscriber: mq.New(broker),
		Channel:    cfg.NotifierChannel,
		Downstream: smtp,
		Logger:     logger,
	}
	return relay.Run(ctx)
}
