package services

import (
	"context"

	"lumina-backend/internal/models"
)

// BlobStore persists artifact bytes under a storage path and returns a
// retrieval URL.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// Catalog is the append-only index of ingested assets, keyed by filename.
// Commit must return an error wrapping models.ErrAssetExists when the
// filename is already cataloged.
type Catalog interface {
	Exists(ctx context.Context, filename string) (bool, error)
	Commit(ctx context.Context, bundle *models.AssetBundle) error
	Get(ctx context.Context, filename string) (*models.AssetBundle, error)
	Recent(ctx context.Context, limit int) ([]models.AssetBundle, error)
}

// Analyzer is the vision-analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*models.VisionAnalysis, error)
}
