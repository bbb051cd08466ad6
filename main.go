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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jalvirtual/acars-dispatch/environments"
	"github.com/jalvirtual/acars-dispatch/handlers"
	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/middlewares"
	"github.com/jalvirtual/acars-dispatch/internal/repository"
	"github.com/jalvirtual/acars-dispatch/internal/scheduler"
	"github.com/jalvirtual/acars-dispatch/internal/service"
	"github.com/jalvirtual/acars-dispatch/internal/store"
	"github.com/jalvirtual/acars-dispatch/pkg/database"
	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
	"github.com/jalvirtual/acars-dispatch/pkg/metrics"
	"github.com/jalvirtual/acars-dispatch/pkg/notify"
	"github.com/jalvirtual/acars-dispatch/pkg/redis"
	"github.com/jalvirtual/acars-dispatch/pkg/validator"
	"github.com/jalvirtual/acars-dispatch/routes"
)

// backend is a persistence port the health check can ping.
type backend interface {
	store.Persister
	PingContext(ctx context.Context) error
}

func openBackend(cfg *environments.Config) (backend, func() error, error) {
	switch cfg.Storage.Driver {
	case environments.DriverValkey:
		client, err := redis.NewRedisClient(cfg.Redis, cfg.Storage.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil

	default:
		db, err := database.Open(cfg.Storage, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMessageRepository(db, cfg.Storage.Namespace), db.Close, nil
	}
}

func main() {
	cfg, err := environments.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}

	logger.Infof("Starting ACARS dispatch service for %s...", cfg.Hoppie.Station)

	m := metrics.New(nil)

	persistence, closeBackend, err := openBackend(cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}

	messages := store.New(persistence,
		store.WithMetrics(m),
		store.WithDedupWindow(cfg.Storage.DedupWindow),
	)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	restored, err := messages.Load(loadCtx)
	loadCancel()
	if err != nil {
		logger.Fatalf("Failed to load message log: %v", err)
	}
	logger.Infof("Restored %d messages from %s storage", len(restored), cfg.Storage.Driver)

	client := hoppie.NewClient(hoppie.Config{
		BaseURL:           cfg.Hoppie.URL,
		StatusURL:         cfg.Hoppie.StatusURL,
		Timeout:           cfg.Hoppie.Timeout,
		RequestsPerMinute: cfg.Hoppie.RequestsPerMinute,
	}, m)

	notifier := notify.Multi{notify.LogNotifier{}}
	if cfg.Notify.WebhookURL != "" {
		webhook := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
		notifier = append(notifier, webhook)
		logger.Infof("Webhook notifications configured: %s", webhook.GetURL())
	}

	acarsService := service.NewACARSService(client, messages, notifier, m, service.Config{
		MaxAttempts: cfg.Hoppie.MaxAttempts,
		RetryDelay:  cfg.Hoppie.RetryDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncLoop := scheduler.NewScheduler(acarsService, cfg.Sync.PollInterval,
		scheduler.WithNotifier(notifier),
		scheduler.WithMetrics(m),
		scheduler.WithAlertThreshold(cfg.Sync.AlertThreshold),
		scheduler.WithSkipError(service.ErrRefreshInFlight),
	)

	if cfg.Sync.AutoStart && cfg.HasCredentials() {
		logger.Infof("Auto-starting sync loop...")
		creds := domain.Credentials{Station: cfg.Hoppie.Station, LogonCode: cfg.Hoppie.LogonCode}
		if err := syncLoop.Activate(ctx, creds); err != nil {
			logger.Warnf("Failed to auto-start sync loop: %v", err)
		}
	} else {
		logger.Infof("Sync loop idle until credentials are supplied")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(middleware.RequestID())
	e.Use(middlewares.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	routes.RegisterRoutes(e, routes.Handlers{
		Health:  handlers.NewHealthHandler(persistence, cfg.Storage.Driver, syncLoop),
		Message: handlers.NewMessageHandler(acarsService, messages),
		Sync:    handlers.NewSyncHandler(syncLoop, ctx, cfg),
		Network: handlers.NewNetworkHandler(acarsService),
	}, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down gracefully...")

		syncLoop.Deactivate()
		messages.Dispose()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server forced to shutdown: %v", err)
		} else {
			logger.Infof("HTTP server stopped successfully")
		}

		if err := closeBackend(); err != nil {
			logger.Errorf("Error closing %s storage: %v", cfg.Storage.Driver, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Service stopped with error: %v", err)
		os.Exit(1)
	}

	logger.Infof("Graceful shutdown completed")
}
