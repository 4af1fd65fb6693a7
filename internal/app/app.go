package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopforge/tokengate/internal/gate"
	"github.com/shopforge/tokengate/internal/revocation"
	"github.com/shopforge/tokengate/internal/revocation/drivers/memory"
	"github.com/shopforge/tokengate/internal/revocation/drivers/redis"
	"github.com/shopforge/tokengate/internal/revocation/drivers/sqlite"
	"github.com/shopforge/tokengate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the validation engine to its revocation store, subject
// roster and key material.
type Application struct {
	cfg    Config
	logger *slog.Logger

	gateway revocation.Gateway
	dir     *gate.StaticDirectory
	keys    *gate.StaticKeyring
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tokengate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initGateway(); err != nil {
		return nil, err
	}

	keys, err := loadKeyring(cfg)
	if err != nil {
		_ = app.gateway.Close()
		return nil, fmt.Errorf("failed to load key material: %w", err)
	}
	app.keys = keys

	dir, err := loadDirectory(cfg.SubjectsFile)
	if err != nil {
		_ = app.gateway.Close()
		return nil, fmt.Errorf("failed to load subject roster: %w", err)
	}
	app.dir = dir

	return app, nil
}

// Logger exposes the application logger for command-level logging.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Gateway exposes the revocation store for the revoke and check commands.
func (app *Application) Gateway() revocation.Gateway { return app.gateway }

// Engine builds a validation engine bound to the given session context.
// The session holder differs per invocation, so engines are not cached.
func (app *Application) Engine(session gate.SessionContext) (*gate.Engine, error) {
	cfg := gate.Config{
		Issuer:            app.cfg.Issuer,
		Audience:          app.cfg.Audience,
		PublicAccessKID:   app.cfg.PublicAccessKID,
		LocalAccessKID:    app.cfg.LocalAccessKID,
		LocalRefreshKID:   app.cfg.LocalRefreshKID,
		ClockSkew:         app.cfg.ClockSkew,
		MaxClaimsBytes:    app.cfg.MaxClaimsBytes,
		MinTokenLength:    app.cfg.MinTokenLength,
		MaxTokenLength:    app.cfg.MaxTokenLength,
		ValidationPermits: app.cfg.ValidationPermits,
		ClaimsPermits:     app.cfg.ClaimsPermits,
		MaxTokenLifetime:  app.cfg.MaxTokenLifetime,
	}

	return gate.New(cfg, gate.Deps{
		Keys:      app.keys,
		Directory: app.dir,
		Session:   session,
		Gateway:   app.gateway,
	})
}

// Sweep purges expired revocation records once and returns. Backends with
// native TTLs have nothing to purge.
func (app *Application) Sweep(ctx context.Context) error {
	purger, ok := app.gateway.(revocation.Purger)
	if !ok {
		app.logger.Info("backend expires records natively, nothing to sweep", "backend", app.cfg.Backend)
		return nil
	}

	if err := purger.DeleteExpired(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("purge expired revocation records: %w", err)
	}
	app.logger.Info("expired revocation records purged")
	return nil
}

// Watch runs the background sweeper and blocks until shutdown is requested.
func (app *Application) Watch() error {
	sweeper := revocation.NewSweeper(app.gateway, app.logger, app.cfg.SweepInterval)
	sweeper.Start()

	app.logger.Info("tokengate sweeping", "interval", app.cfg.SweepInterval, "version", BuildVersion)

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig)

	sweeper.Stop()
	return nil
}

// Close releases the revocation store connection.
func (app *Application) Close() error {
	if err := app.gateway.Close(); err != nil {
		app.logger.Error("error closing revocation store", "error", err)
		return err
	}
	return nil
}

// initGateway opens the configured revocation backend.
func (app *Application) initGateway() error {
	switch app.cfg.Backend {
	case "", "memory":
		app.gateway = memory.New()

	case "redis":
		gw, err := redis.New(redis.Config{
			Addr:      app.cfg.RedisAddr,
			Password:  app.cfg.RedisPassword,
			DB:        app.cfg.RedisDB,
			KeyPrefix: app.cfg.RedisKeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.gateway = gw

	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		gw, err := sqlite.New(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := gw.ApplyMigrations(); err != nil {
			_ = gw.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.gateway = gw
		app.logger.Info("database migrations applied successfully")

	default:
		return fmt.Errorf("unknown revocation backend %q", app.cfg.Backend)
	}

	return nil
}
