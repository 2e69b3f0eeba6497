package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/igorsal/commit-bridge/api"
	"github.com/igorsal/commit-bridge/internal/config"
	"github.com/igorsal/commit-bridge/internal/interfaces"
	"github.com/igorsal/commit-bridge/internal/models"
	"github.com/igorsal/commit-bridge/internal/services"
	"github.com/igorsal/commit-bridge/io/openproject"
	"github.com/igorsal/commit-bridge/pkg/logger"
	"github.com/igorsal/commit-bridge/pkg/metrics"
)

const (
	DefaultVersion  = "1.0.0"
	ShutdownTimeout = 30 * time.Second
	IdleTimeout     = 120 * time.Second
)

// Application holds all dependencies
type Application struct {
	config     *config.Config
	logger     interfaces.Logger
	metrics    interfaces.MetricsCollector
	mappings   *services.StatusMappingStore
	tracker    interfaces.TrackerClient
	dispatcher interfaces.WebhookDispatcher
	server     *http.Server
}

func main() {
	app, err := initializeApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	app.logger.Info("Starting commit bridge service",
		"version", DefaultVersion,
		"environment", os.Getenv("ENVIRONMENT"),
	)

	if err := app.run(); err != nil {
		app.logger.Fatal("Application failed to run", err)
	}
}

// initializeApplication sets up all dependencies using dependency injection pattern
func initializeApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logger.NewAdapter(cfg.Logging.Level, cfg.Logging.Format)
	metrics := metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)

	mappings, err := services.NewStatusMappingStore(cfg.StatusMapping.Path, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to load status mapping: %w", err)
	}

	tracker := openproject.NewClient(cfg.Tracker, logger, metrics)

	secrets := services.Secrets{
		models.ProviderGitHub: cfg.Webhook.GitHubSecret,
		models.ProviderGitLab: cfg.Webhook.GitLabSecret,
	}
	for provider, secret := range secrets {
		if secret == "" {
			logger.Warn("Webhook secret not configured, every delivery from this provider will be rejected",
				"provider", string(provider))
		}
	}

	dispatcher := services.NewDispatcher(secrets, mappings, tracker, cfg.Tracker.Timeout, logger, metrics)

	app := &Application{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		mappings:   mappings,
		tracker:    tracker,
		dispatcher: dispatcher,
	}

	app.setupServer()

	return app, nil
}

// setupServer configures the HTTP server with all routes and middleware
func (app *Application) setupServer() {
	router := api.NewRouter(api.RouterDeps{
		Dispatcher:     app.dispatcher,
		Mappings:       app.mappings,
		Limiter:        services.NewRateLimiter(app.config.Webhook.RateLimitPerMin),
		AdminToken:     app.config.Admin.Token,
		MetricsHandler: promhttp.Handler(),
		Logger:         app.logger,
		Metrics:        app.metrics,
	})

	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", app.config.Server.Host, app.config.Server.Port),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
}

// run starts the application and handles graceful shutdown
func (app *Application) run() error {
	serverErrors := make(chan error, 1)

	go func() {
		app.logger.Info("Starting HTTP server",
			"host", app.config.Server.Host,
			"port", app.config.Server.Port,
			"tls", app.config.Server.TLSEnabled(),
		)

		var err error
		if app.config.Server.TLSEnabled() {
			err = app.server.ListenAndServeTLS(app.config.Server.TLSCertFile, app.config.Server.TLSKeyFile)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	for {
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server failed to start: %w", err)

		case <-reload:
			app.logger.Info("SIGHUP received, reloading status mapping")
			// Reload logs its own failure and keeps the previous mapping
			_, _ = app.mappings.Reload()

		case <-ctx.Done():
			app.logger.Info("Shutdown signal received")
			return app.gracefulShutdown()
		}
	}
}

// gracefulShutdown performs graceful shutdown with timeout
func (app *Application) gracefulShutdown() error {
	app.logger.Info("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	shutdownComplete := make(chan error, 1)

	go func() {
		// In-flight deliveries finish their tracker calls before Shutdown returns
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			shutdownComplete <- fmt.Errorf("server shutdown failed: %w", err)
			return
		}
		shutdownComplete <- nil
	}()

	select {
	case err := <-shutdownComplete:
		if err != nil {
			app.logger.Error("Graceful shutdown failed", err)
			if closeErr := app.server.Close(); closeErr != nil {
				app.logger.Error("Force shutdown also failed", closeErr)
			}
			return err
		}
		app.logger.Info("Graceful shutdown completed successfully")
		return nil

	case <-shutdownCtx.Done():
		app.logger.Error("Shutdown timeout exceeded, forcing close", nil)
		if err := app.server.Close(); err != nil {
			app.logger.Error("Force shutdown failed", err)
		}
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
