package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/handler"
	"github.com/jorellortega/covionpartners-sub001/pager"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
	"github.com/jorellortega/covionpartners-sub001/pkg/tracing"
	"github.com/jorellortega/covionpartners-sub001/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	config.GlobalConfig = cfg

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	db, err := service.OpenDatabase(cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	if err := service.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	blobs, err := service.NewBlobStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize blob store", "provider", cfg.Storage.Provider, "error", err)
		os.Exit(1)
	}

	cache, closeCache, err := service.NewFieldCache(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to initialize field cache", "error", err)
		os.Exit(1)
	}

	p, err := pager.New(cfg.Editor.PageSize)
	if err != nil {
		slog.Error("invalid page size", "error", err)
		os.Exit(1)
	}

	// Initialize services
	contracts := service.NewGormContractRepository(db)
	codes := service.NewGormAccessCodeRepository(db)
	identity := service.NewConfigIdentityProvider(cfg)
	sessions := service.NewEditSessionStore(cfg.Editor.MaxSessions)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, handler.Services{
		Identity:  identity,
		Contracts: service.NewContractService(contracts, codes, identity, sessions),
		Forms:     service.NewFormService(contracts, blobs, cache),
		Editing:   service.NewEditingService(contracts, sessions, p),
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Provider, "database", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := closeCache(); err != nil {
		slog.Warn("failed to close field cache", "error", err)
	}
	if closer, ok := blobs.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close blob store", "error", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("failed to flush traces", "error", err)
	}

	slog.Info("server exited gracefully")
}
