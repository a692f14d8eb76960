package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"box-metadata-workers/internal/common/box"
	"box-metadata-workers/internal/common/camunda"
	"box-metadata-workers/internal/common/config"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/common/observability"
	"box-metadata-workers/internal/notify"
	"box-metadata-workers/internal/session"
	am "box-metadata-workers/internal/workers/metadata/apply-metadata"
	"box-metadata-workers/pkg/registry"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	var source session.Source
	var closeSource func() error
	err = retryWithBackoff(func() error {
		var err error
		source, closeSource, err = session.Open(ctx, "", cfg.Database, log)
		return err
	}, 10, 2*time.Second, zapLog, "Session source connection")
	if err != nil {
		zapLog.Fatal("session source failed after retries", zap.Error(err))
	}
	defer closeSource()
	zapLog.Info("Session source connected", zap.String("source", source.Name()))

	boxClient, err := box.NewClientFromConfig(ctx, cfg.Box)
	if err != nil {
		zapLog.Fatal("box client setup failed", zap.Error(err))
	}

	notifier, err := notify.NewFromConfig(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier setup failed", zap.Error(err))
	}

	handler, err := am.NewHandler(am.HandlerOptions{
		AppConfig:     cfg,
		Camunda:       zeebe,
		Logger:        log,
		BoxClient:     boxClient,
		Source:        source,
		Notifier:      notifier,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("failed to create apply-metadata handler", zap.Error(err))
	}
	if err := handler.Register(); err != nil {
		zapLog.Fatal("failed to register apply-metadata worker", zap.Error(err))
	}
	defer handler.Close()

	activities := registry.New(cfg.App.Version)
	if err := activities.Add(handler.Activity()); err != nil {
		zapLog.Warn("activity registry update failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:    cfg.Metrics.Address,
		Handler: newMux(handler, activities),
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func newMux(checker healthChecker, activities http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", "")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := checker.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})
	mux.Handle("/activities", activities)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status, detail string) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if detail != "" {
		body["error"] = detail
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
