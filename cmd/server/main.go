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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/api"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/database"
	"github.com/ndewijer/note-kfet-kiosk/internal/desk"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
	"github.com/ndewijer/note-kfet-kiosk/internal/scheduler"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/session"
	"github.com/ndewijer/note-kfet-kiosk/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kiosk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	logging.SetGlobal(logger)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("connected to database", zap.String("path", cfg.Database.Path))

	// Persist warnings and errors to the log table
	logRepo := repository.NewLogRepository(db)
	logger, err = logger.Persist(logRepo, cfg.Log.PersistLevel)
	if err != nil {
		return fmt.Errorf("failed to configure log persistence: %w", err)
	}
	defer logger.Close()
	logging.SetGlobal(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector("kiosk", registry)

	// Note API client, behind the circuit breaker
	client := noteapi.NewResilientClient(
		noteapi.NewClient(cfg.NoteAPI, noteapi.WithMetrics(m)),
		cfg.NoteAPI,
		m,
	)

	// Create services
	catalogService := service.NewCatalogService(repository.NewCatalogRepository(db), client, m)
	memberService := service.NewMemberService(client, cfg.NoteAPI)
	submitService := service.NewSubmitService(client, cfg.Submit, m)
	validityService := service.NewValidityService(client)
	developerService := service.NewDeveloperService(logRepo, logger, cfg.Log.Retention)

	sessions, err := session.NewRegistry(desk.Deps{
		Client:  client,
		Submit:  submitService,
		Catalog: catalogService,
		Members: memberService,
		Config:  cfg,
		Metrics: m,
	}, cfg.Session, m)
	if err != nil {
		return err
	}

	systemService := service.NewSystemService(db, catalogService, client, sessions, cfg.NoteAPI.BaseURL)

	if cfg.Catalog.SyncOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Submit.Timeout)
		if _, err := catalogService.Sync(ctx); err != nil {
			logger.Warn("initial catalog sync failed, serving the stored catalog", zap.Error(err))
		}
		cancel()
	}

	jobs, err := scheduler.New(catalogService, sessions, cfg.Catalog.SyncSchedule, cfg.Submit.Timeout)
	if err != nil {
		return err
	}
	if err := jobs.AddLogPruning(developerService); err != nil {
		return err
	}
	jobs.Start()

	// Create router
	router := api.NewRouter(api.Services{
		System:    systemService,
		Catalog:   catalogService,
		Members:   memberService,
		Validity:  validityService,
		Developer: developerService,
	}, sessions, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), cfg)

	// Create HTTP server. The write timeout leaves room for a full submission.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Submit.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("version", version.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := jobs.Stop(ctx); err != nil {
		logger.Warn("scheduled jobs did not finish", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}
