package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courier/internal/config"
	"courier/internal/domain/notification"
	"courier/internal/infra/email"
	"courier/internal/infra/providers"
	"courier/internal/infra/store"
	"courier/internal/infra/template"
	"courier/internal/metrics"
	"courier/internal/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"store", cfg.Store.Driver,
		"max_attempts", cfg.Delivery.MaxAttempts,
	)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	notifStore, closeStore, err := newStore(cfg)
	if err != nil {
		slog.Error("failed to initialize notification store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("notification store initialized", "driver", cfg.Store.Driver)

	// Template Engine
	templates, err := template.NewEngine()
	if err != nil {
		slog.Error("failed to load template catalog", "error", err)
		os.Exit(1)
	}
	if err := templates.CheckComplete(); err != nil {
		slog.Error("template catalog incomplete", "error", err)
		os.Exit(1)
	}

	// Providers
	registry, err := providers.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize providers", "error", err)
		os.Exit(1)
	}

	// Pipeline
	pipeline := notification.NewPipeline(notifStore, templates, registry,
		notification.PipelineConfig{
			MaxAttempts: cfg.Delivery.MaxAttempts,
			BaseDelay:   cfg.Delivery.BaseDelay(),
		},
		notification.WithRecorder(metrics.Recorder{}),
	)

	// Service
	notificationService := notification.NewService(notifStore, pipeline)

	// Handler
	notificationHandler := notification.NewHandler(notificationService)

	// Router
	r := router.New(cfg, notificationHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	// A submit call holds the request open for the whole retry loop.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout(email.DefaultResendTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// In-flight submissions finish their retry loop before the store closes.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		closeStore()
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// newStore picks the persistence backend named by store.driver.
func newStore(cfg *config.Config) (notification.NotificationStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreSupabase:
		s, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.StoreRedis:
		client := store.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("pinging redis at %s: %w", cfg.Redis.Address, err)
		}
		return store.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
