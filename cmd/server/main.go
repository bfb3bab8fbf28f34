package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudpix/internal/server/api"
	"cloudpix/internal/server/config"
	"cloudpix/internal/server/database"
	"cloudpix/internal/server/service"
	"cloudpix/internal/server/storage"
	"cloudpix/internal/server/telemetry"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"max_file_size", cfg.MaxFileSize,
		"purge_interval", cfg.PurgeInterval,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize blob storage
	var blobs storage.BlobStore
	switch cfg.StorageBackend {
	case "s3":
		blobs = storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		slog.Info("s3 blob storage initialized", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
	default:
		fsStore := storage.NewFileSystemStore(cfg.StoragePath, cfg.BaseURL)
		if err := fsStore.EnsureDir(); err != nil {
			slog.Error("failed to initialize storage", "error", err)
			os.Exit(1)
		}
		blobs = fsStore
		slog.Info("filesystem blob storage initialized", "path", cfg.StoragePath)
	}

	// Initialize repositories and services
	users := database.NewUserRepository(db)
	files := database.NewFileRepository(db)
	links := database.NewShareLinkRepository(db)
	events := telemetry.NewRecorder()

	authSvc := service.NewAuthService(users, cfg.JWTSecret, cfg.JWTExpiry)
	fileSvc := service.NewFileService(files, blobs, events, cfg.MaxFileSize)
	shareSvc := service.NewShareLinkService(files, links, events)

	// Start expired share-link purge worker
	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	purge := storage.NewPurgeService(links, cfg.PurgeInterval)
	purge.Start(purgeCtx)

	// Setup HTTP router
	handler := api.NewHandler(authSvc, fileSvc, shareSvc, db)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop the purge worker
	purgeCancel()
	purge.Wait()

	slog.Info("server exited cleanly")
}
