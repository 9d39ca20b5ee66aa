package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"lumina-backend/internal/models"
)

const assetsTable = "assets"

// CatalogClient reads and writes catalog records through the PostgREST API.
// The table layout is the one created by the postgres migrations.
type CatalogClient struct {
	client *supabase.Client
}

func NewCatalogClient(client *supabase.Client) *CatalogClient {
	return &CatalogClient{client: client}
}

type assetRow struct {
	ID          uuid.UUID              `json:"id"`
	Filename    string                 `json:"filename"`
	CaptureDate time.Time              `json:"capture_date"`
	FolderDate  string                 `json:"folder_date"`
	Meta        models.AssetMeta       `json:"meta"`
	Verdict     models.Verdict         `json:"verdict"`
	Paths       models.Artifacts       `json:"paths"`
	URLs        models.Artifacts       `json:"urls"`
	AIAnalysis  *models.VisionAnalysis `json:"ai_analysis"`
	UploadedAt  time.Time              `json:"uploaded_at"`
}

func rowFrom(b *models.AssetBundle) assetRow {
	return assetRow{
		ID:          b.ID,
		Filename:    b.Filename,
		CaptureDate: b.CaptureDate.UTC(),
		FolderDate:  b.FolderDate,
		Meta:        b.Meta,
		Verdict:     b.Verdict,
		Paths:       b.Paths,
		URLs:        b.URLs,
		AIAnalysis:  b.AIAnalysis,
		UploadedAt:  b.UploadedAt.UTC(),
	}
}

func (r assetRow) bundle() models.AssetBundle {
	return models.AssetBundle{
		ID:          r.ID,
		Filename:    r.Filename,
		CaptureDate: r.CaptureDate.UTC(),
		FolderDate:  r.FolderDate,
		Meta:        r.Meta,
		Verdict:     r.Verdict,
		Paths:       r.Paths,
		URLs:        r.URLs,
		AIAnalysis:  r.AIAnalysis,
		UploadedAt:  r.UploadedAt.UTC(),
	}
}

func (c *CatalogClient) Exists(ctx context.Context, filename string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var rows []struct {
		ID uuid.UUID `json:"id"`
	}
	_, err := c.client.From(assetsTable).
		Select("id", "", false).
		Eq("filename", filename).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return false, fmt.Errorf("failed to query catalog: %w", err)
	}
	return len(rows) > 0, nil
}

func (c *CatalogClient) Commit(ctx context.Context, bundle *models.AssetBundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := c.client.From(assetsTable).
		Insert(rowFrom(bundle), false, "", "minimal", "").
		Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrAssetExists, bundle.Filename)
		}
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

func (c *CatalogClient) Get(ctx context.Context, filename string) (*models.AssetBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []assetRow
	_, err := c.client.From(assetsTable).
		Select("*", "", false).
		Eq("filename", filename).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	if len(rows) == 0 {
		return nil, models.ErrAssetNotFound
	}
	b := rows[0].bundle()
	return &b, nil
}

// Recent lists the newest assets by capture date.
func (c *CatalogClient) Recent(ctx context.Context, limit int) ([]models.AssetBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []assetRow
	_, err := c.client.From(assetsTable).
		Select("*", "", false).
		Order("capture_date", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	out := make([]models.AssetBundle, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.bundle())
	}
	return out, nil
}

// Ping issues a cheap query against the assets table.
func (c *CatalogClient) Ping(ctx context.Context) error {
	_, err := c.Exists(ctx, "")
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
