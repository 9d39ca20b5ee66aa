package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	CatalogPostgres = "postgres"
	CatalogSQLite   = "sqlite"
	CatalogSupabase = "supabase"

	BlobSupabase = "supabase"
	BlobLocal    = "local"
)

type Config struct {
	// Vision analysis (Gemini)
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiAPIBaseURL string        `env:"GEMINI_API_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel      string        `env:"GEMINI_MODEL"        envDefault:"gemini-2.5-flash"`
	VisionTimeout    time.Duration `env:"VISION_TIMEOUT"      envDefault:"60s"`
	VisionMaxRetries int           `env:"VISION_MAX_RETRIES"  envDefault:"3"`

	// Supabase
	SupabaseURL           string `env:"SUPABASE_URL"`
	SupabaseServiceKey    string `env:"SUPABASE_SERVICE_KEY"`
	SupabaseStorageBucket string `env:"SUPABASE_STORAGE_BUCKET" envDefault:"lumina-assets"`
	SupabaseRealtimeTopic string `env:"SUPABASE_REALTIME_TOPIC"`

	// Artifact storage
	BlobDriver   string `env:"BLOB_DRIVER"    envDefault:"supabase"`
	LocalBlobDir string `env:"LOCAL_BLOB_DIR" envDefault:"./data/blobs"`

	// Catalog
	CatalogDriver string `env:"CATALOG_DRIVER" envDefault:"sqlite"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"./data/lumina.db"`

	// Pipeline
	RollbackOnFailure bool  `env:"ROLLBACK_ON_FAILURE" envDefault:"false"`
	BatchConcurrency  int   `env:"BATCH_CONCURRENCY"   envDefault:"1"`
	MaxUploadMB       int64 `env:"MAX_UPLOAD_MB"       envDefault:"200"`

	// Server
	Port        string `env:"PORT"        envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT"  envDefault:"json"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.CatalogDriver = strings.ToLower(strings.TrimSpace(cfg.CatalogDriver))
	cfg.BlobDriver = strings.ToLower(strings.TrimSpace(cfg.BlobDriver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.CatalogDriver {
	case CatalogPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres catalog")
		}
	case CatalogSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite catalog")
		}
	case CatalogSupabase:
		if err := c.requireSupabase(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported CATALOG_DRIVER %q", c.CatalogDriver)
	}

	switch c.BlobDriver {
	case BlobSupabase:
		if err := c.requireSupabase(); err != nil {
			return err
		}
	case BlobLocal:
		if c.LocalBlobDir == "" {
			return fmt.Errorf("LOCAL_BLOB_DIR is required for the local blob store")
		}
	default:
		return fmt.Errorf("unsupported BLOB_DRIVER %q", c.BlobDriver)
	}

	if c.VisionTimeout <= 0 {
		return fmt.Errorf("VISION_TIMEOUT must be positive")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1")
	}
	return nil
}

// VisionEnabled reports whether a vision API key is configured. Without one
// every bundle is ingested with the fallback verdict.
func (c *Config) VisionEnabled() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) requireSupabase() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	return nil
}
