package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lumina-backend/internal/models"
)

const assetColumns = `id, filename, capture_date, folder_date, meta, verdict, paths, urls, ai_analysis, uploaded_at`

// CatalogStore keeps catalog records in a SQL database. The UNIQUE
// constraint on filename makes concurrent commits of one filename safe.
type CatalogStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewCatalogStore(db *sql.DB, dialect Dialect) *CatalogStore {
	return &CatalogStore{db: db, dialect: dialect}
}

func (s *CatalogStore) Exists(ctx context.Context, filename string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		Rebind(s.dialect, "SELECT 1 FROM assets WHERE filename = ? LIMIT 1"),
		filename,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query catalog: %w", err)
	}
	return true, nil
}

func (s *CatalogStore) Commit(ctx context.Context, bundle *models.AssetBundle) error {
	meta, err := json.Marshal(bundle.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}
	verdict, err := json.Marshal(bundle.Verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	paths, err := json.Marshal(bundle.Paths)
	if err != nil {
		return fmt.Errorf("failed to marshal paths: %w", err)
	}
	urls, err := json.Marshal(bundle.URLs)
	if err != nil {
		return fmt.Errorf("failed to marshal urls: %w", err)
	}
	var analysis sql.NullString
	if bundle.AIAnalysis != nil {
		raw, err := json.Marshal(bundle.AIAnalysis)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		analysis = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		Rebind(s.dialect, `INSERT INTO assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		bundle.ID.String(),
		bundle.Filename,
		encodeTime(s.dialect, bundle.CaptureDate),
		bundle.FolderDate,
		string(meta),
		string(verdict),
		string(paths),
		string(urls),
		analysis,
		encodeTime(s.dialect, bundle.UploadedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrAssetExists, bundle.Filename)
		}
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

func (s *CatalogStore) Get(ctx context.Context, filename string) (*models.AssetBundle, error) {
	row := s.db.QueryRowContext(ctx,
		Rebind(s.dialect, `SELECT `+assetColumns+` FROM assets WHERE filename = ?`),
		filename,
	)
	bundle, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return bundle, nil
}

// Recent lists the newest assets by capture date.
func (s *CatalogStore) Recent(ctx context.Context, limit int) ([]models.AssetBundle, error) {
	rows, err := s.db.QueryContext(ctx,
		Rebind(s.dialect, `SELECT `+assetColumns+` FROM assets ORDER BY capture_date DESC, filename ASC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []models.AssetBundle
	for rows.Next() {
		bundle, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, *bundle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return out, nil
}

func (s *CatalogStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*models.AssetBundle, error) {
	var (
		id                         string
		captureRaw, uploadedRaw    any
		meta, verdict, paths, urls []byte
		analysis                   []byte
		bundle                     models.AssetBundle
	)
	if err := row.Scan(&id, &bundle.Filename, &captureRaw, &bundle.FolderDate,
		&meta, &verdict, &paths, &urls, &analysis, &uploadedRaw); err != nil {
		return nil, err
	}

	var err error
	if bundle.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid asset id %q: %w", id, err)
	}
	if bundle.CaptureDate, err = decodeTime(captureRaw); err != nil {
		return nil, err
	}
	if bundle.UploadedAt, err = decodeTime(uploadedRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &bundle.Meta); err != nil {
		return nil, fmt.Errorf("invalid meta: %w", err)
	}
	if err := json.Unmarshal(verdict, &bundle.Verdict); err != nil {
		return nil, fmt.Errorf("invalid verdict: %w", err)
	}
	if err := json.Unmarshal(paths, &bundle.Paths); err != nil {
		return nil, fmt.Errorf("invalid paths: %w", err)
	}
	if err := json.Unmarshal(urls, &bundle.URLs); err != nil {
		return nil, fmt.Errorf("invalid urls: %w", err)
	}
	if len(analysis) > 0 {
		bundle.AIAnalysis = &models.VisionAnalysis{}
		if err := json.Unmarshal(analysis, bundle.AIAnalysis); err != nil {
			return nil, fmt.Errorf("invalid analysis: %w", err)
		}
	}
	return &bundle, nil
}
