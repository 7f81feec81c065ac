package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wudi/pdfworks/config"
	"github.com/wudi/pdfworks/engine"
	"github.com/wudi/pdfworks/lifecycle"
	"github.com/wudi/pdfworks/observability"
	"github.com/wudi/pdfworks/ocr/tesseract"
	"github.com/wudi/pdfworks/pipeline"
	"github.com/wudi/pdfworks/raster"
	"github.com/wudi/pdfworks/server"
	"github.com/wudi/pdfworks/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(observability.NewHandler(os.Stdout, cfg.Log)))
	logger := observability.NewSlogLogger(slog.Default())

	if err := run(cfg, logger); err != nil {
		logger.Error("pdfworksd exited", observability.Error("error", err))
		os.Exit(1)
	}
}

func openBlobs(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case "minio":
		store, err := storage.NewMinio(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return storage.NewFS(cfg.OutputDir)
	}
}

func run(cfg *config.Config, logger observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := openBlobs(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	records, err := lifecycle.OpenFileStore(cfg.Storage.RecordsFile)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	stager, err := lifecycle.NewStager(cfg.Storage.ScratchDir)
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	registry := lifecycle.NewRegistry(blobs, records, lifecycle.Options{
		Retention: cfg.Retention.Duration(),
		Logger:    logger,
	})

	renderer := raster.NewPoppler(cfg.OCR.Renderer, cfg.Storage.ScratchDir, logger)
	recognizer := tesseract.NewTesseractEngine(cfg.OCR.Languages...)
	eng := engine.New(stager, registry, renderer, recognizer, engine.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		OCR: pipeline.Config{
			Languages: cfg.OCR.Languages,
			DPI:       cfg.OCR.DPI,
			MaxSide:   cfg.OCR.MaxSide,
		},
		Logger: logger,
		Tracer: observability.NewLogTracer(logger),
	})

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.New(eng, logger, cfg.Server.MaxUploadBytes()).Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go registry.RunSweeper(ctx, cfg.Retention.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			observability.Int("port", cfg.Server.Port),
			observability.String("storage", cfg.Storage.Backend),
			observability.Int("retention_days", cfg.Retention.Days),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited gracefully")
	return nil
}
