// Lumina ingestion API.
//
// Accepts raw + preview bundles over HTTP, catalogs them and serves the
// catalog back.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lumina-backend/internal/app"
	"lumina-backend/internal/config"
	"lumina-backend/internal/handlers"
	"lumina-backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if applied, err := application.Migrate(); err != nil {
		logger.Warn("migration failed", "error", err)
	} else if len(applied) > 0 {
		logger.Info("migrations applied", "migrations", applied)
	}

	router := handlers.NewRouter(handlers.Routes{
		Health:  handlers.NewHealthHandler(application.Catalog),
		Bundles: handlers.NewBundlesHandler(application.Ingest, cfg.MaxUploadMB<<20, logger),
		Assets:  handlers.NewAssetsHandler(application.Catalog),
		Logger:  logger,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "port", port, "catalog", cfg.CatalogDriver, "blobs", cfg.BlobDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
