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

	"github.com/smartclassroom/authd/internal/auth/audit"
	httpapi "github.com/smartclassroom/authd/internal/auth/http"
	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/internal/auth/store"
	"github.com/smartclassroom/authd/internal/auth/store/drivers/sqlite"
	"github.com/smartclassroom/authd/pkg/passwordx"
	"github.com/smartclassroom/authd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	auditLogger *audit.Logger

	// Services
	authService         *service.AuthService
	accountService      *service.AccountService
	userService         *service.UserService
	auditQueryService   *service.AuditQueryService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	// Seed the default admin on an empty database. The generated password
	// is logged once and never stored in the clear.
	if _, created, err := app.bootstrapService.EnsureAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	} else if created {
		app.logger.Info("bootstrap admin account created", "student_id", service.DefaultAdminStudentID)
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.auditLogger.Record(context.Background(), audit.Event{
		Action:  audit.ActionSystemStartup,
		Success: true,
		Details: map[string]any{"version": BuildVersion},
	})

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.auditLogger = audit.New(app.db, app.logger, audit.FileConfig{
		SystemPath:   app.cfg.AuditLogFile,
		SecurityPath: app.cfg.SecurityLogFile,
		MaxSizeMB:    app.cfg.AuditMaxSizeMB,
		MaxBackups:   app.cfg.AuditMaxBackups,
		MaxAgeDays:   app.cfg.AuditMaxAgeDays,
	})

	hasher := &passwordx.Hasher{Cost: app.cfg.BcryptCost}

	lockout := service.NewLockoutGuard(app.db)
	if app.cfg.MaxLoginAttempts > 0 {
		lockout.MaxAttempts = app.cfg.MaxLoginAttempts
	}
	if app.cfg.LockoutWindow > 0 {
		lockout.Window = app.cfg.LockoutWindow
	}

	sessions := service.NewSessionManager(app.db)
	if app.cfg.SessionTTL > 0 {
		sessions.TTL = app.cfg.SessionTTL
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Hasher:   hasher,
		Lockout:  lockout,
		Sessions: sessions,
		Audit:    app.auditLogger,
	}

	policy := passwordx.DefaultPolicy()
	if app.cfg.PasswordMinLength > 0 {
		policy.MinLength = app.cfg.PasswordMinLength
	}

	app.accountService = &service.AccountService{
		Store:        app.db,
		Hasher:       hasher,
		Policy:       policy,
		Sessions:     sessions,
		Audit:        app.auditLogger,
		HistoryLimit: app.cfg.PasswordHistoryLimit,
	}

	app.userService = &service.UserService{
		Store:    app.db,
		Sessions: sessions,
		Audit:    app.auditLogger,
	}

	app.auditQueryService = &service.AuditQueryService{Store: app.db}

	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Hasher: hasher,
		Audit:  app.auditLogger,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.AuthService = app.authService
	router.AccountService = app.accountService
	router.UserService = app.userService
	router.AuditQueryService = app.auditQueryService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
