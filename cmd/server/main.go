package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/copyleftdev/atsp/internal/config"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/metrics"
	"github.com/copyleftdev/atsp/internal/server"
	"github.com/copyleftdev/atsp/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use standard logger as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LoggingConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "atsp-solver",
		"env":     cfg.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		serviceLogger.Fatal("Failed to create run store", map[string]interface{}{"error": err.Error()})
	}
	if err := store.Init(ctx); err != nil {
		serviceLogger.Fatal("Failed to initialize run store", map[string]interface{}{
			"error": err.Error(),
			"type":  cfg.Database.Type,
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(serviceLogger))
	r.Use(errors.RecoveryMiddleware(serviceLogger))
	r.Use(errors.ErrorHandler(serviceLogger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if l := logging.FromContext(r.Context()); l != nil {
			l.Debug("Health check")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", m.Handler())

	srv := server.NewServer(cfg, serviceLogger, store, m)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address":  httpServer.Addr,
			"store":    cfg.Database.Type,
			"workers":  cfg.Optimization.WorkerCount,
			"defaults": cfg.Search.Algorithm,
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	<-ctx.Done()
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	// Cancels in-flight runs and waits for them to persist.
	if err := srv.Close(); err != nil {
		serviceLogger.Error("error closing server resources", map[string]interface{}{"error": err.Error()})
	}
	if err := storage.CloseIfSupported(store); err != nil {
		serviceLogger.Error("error closing run store", map[string]interface{}{"error": err.Error()})
	}

	serviceLogger.Info("server exited properly")
}
