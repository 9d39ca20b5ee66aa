// Package app wires configuration into a ready ingest pipeline. Both the
// HTTP server and the CLI start from here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"lumina-backend/internal/config"
	"lumina-backend/internal/database"
	"lumina-backend/internal/progress"
	"lumina-backend/internal/services"
	"lumina-backend/internal/storage"
	"lumina-backend/internal/supabase"
	"lumina-backend/internal/vision"
)

// Catalog is a catalog backend that can also report its health.
type Catalog interface {
	services.Catalog
	Ping(ctx context.Context) error
}

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Catalog Catalog
	Ingest  *services.IngestService

	db      *sql.DB
	dialect database.Dialect
}

// New builds the catalog, blob store, vision client and progress sinks named
// by cfg. Extra sinks receive every progress event.
func New(cfg *config.Config, logger *slog.Logger, sinks ...progress.Sink) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	var sb *supabase.Client
	needSupabase := cfg.CatalogDriver == config.CatalogSupabase ||
		cfg.BlobDriver == config.BlobSupabase ||
		cfg.SupabaseRealtimeTopic != ""
	if needSupabase && cfg.SupabaseURL != "" {
		var err error
		sb, err = supabase.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize supabase client: %w", err)
		}
	}

	if err := a.openCatalog(sb); err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var analyzer services.Analyzer
	if cfg.VisionEnabled() {
		analyzer = vision.NewClient(vision.Config{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiAPIBaseURL,
			Model:      cfg.GeminiModel,
			Timeout:    cfg.VisionTimeout,
			MaxRetries: cfg.VisionMaxRetries,
		})
	} else {
		logger.Warn("GEMINI_API_KEY not set; bundles will be cataloged without a verdict")
	}

	all := append([]progress.Sink{progress.NewLogSink(logger)}, sinks...)
	if cfg.SupabaseRealtimeTopic != "" && sb != nil {
		all = append(all, supabase.NewRealtimeClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseRealtimeTopic, logger))
	}

	a.Ingest = services.NewIngestService(a.Catalog, blobs, analyzer, progress.Multi(all...), logger, services.Options{
		VisionTimeout:     cfg.VisionTimeout,
		RollbackOnFailure: cfg.RollbackOnFailure,
	})
	return a, nil
}

func (a *App) openCatalog(sb *supabase.Client) error {
	cfg := a.Config
	switch cfg.CatalogDriver {
	case config.CatalogPostgres:
		return a.openSQL(database.Postgres, cfg.DatabaseURL)
	case config.CatalogSQLite:
		return a.openSQL(database.SQLite, cfg.SQLitePath)
	case config.CatalogSupabase:
		if sb == nil {
			return errors.New("supabase catalog requires SUPABASE_URL")
		}
		a.Catalog = supabase.NewCatalogClient(sb.Supabase)
		if cfg.DatabaseURL != "" {
			// migrations run against the project's postgres directly
			db, err := database.Open(database.Postgres, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			a.db, a.dialect = db, database.Postgres
		}
		return nil
	default:
		return fmt.Errorf("unsupported catalog driver %q", cfg.CatalogDriver)
	}
}

func (a *App) openSQL(dialect database.Dialect, dsn string) error {
	db, err := database.Open(dialect, dsn)
	if err != nil {
		return err
	}
	a.db, a.dialect = db, dialect
	a.Catalog = database.NewCatalogStore(db, dialect)
	return nil
}

func newBlobStore(cfg *config.Config) (services.BlobStore, error) {
	switch cfg.BlobDriver {
	case config.BlobSupabase:
		return supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	case config.BlobLocal:
		return storage.NewLocal(cfg.LocalBlobDir)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.BlobDriver)
	}
}

// Migrate applies pending catalog migrations. It is a no-op when the catalog
// has no direct database connection.
func (a *App) Migrate() ([]string, error) {
	if a.db == nil {
		a.Logger.Warn("no direct database connection; skipping migrations")
		return nil, nil
	}
	return database.NewMigrator(a.db, a.dialect, a.Logger).Run()
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
