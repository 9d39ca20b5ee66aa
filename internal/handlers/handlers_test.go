package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina-backend/internal/database"
	"lumina-backend/internal/handlers"
	"lumina-backend/internal/models"
	"lumina-backend/internal/progress"
	"lumina-backend/internal/services"
	"lumina-backend/internal/storage"
	"lumina-backend/internal/test/fixtures"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIngester struct {
	result services.Result
	got    models.BundleInput
}

func (s *stubIngester) Ingest(ctx context.Context, in models.BundleInput, observers ...progress.Sink) services.Result {
	s.got = in
	for _, o := range observers {
		o.Emit(ctx, models.ProgressEvent{BundleID: s.result.BundleID, State: s.result.State, Message: "done"})
	}
	return s.result
}

type stubCatalog struct {
	assets  []models.AssetBundle
	err     error
	limit   int
	pingErr error
}

func (s *stubCatalog) Get(_ context.Context, filename string) (*models.AssetBundle, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, a := range s.assets {
		if a.Filename == filename {
			return &a, nil
		}
	}
	return nil, models.ErrAssetNotFound
}

func (s *stubCatalog) Recent(_ context.Context, limit int) ([]models.AssetBundle, error) {
	s.limit = limit
	return s.assets, s.err
}

func (s *stubCatalog) Ping(context.Context) error { return s.pingErr }

func bundleRequest(t *testing.T, rawName string, raw []byte, previewName string, preview []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if raw != nil {
		part, err := w.CreateFormFile("raw", rawName)
		require.NoError(t, err)
		_, _ = part.Write(raw)
	}
	if preview != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="preview"; filename="%s"`, previewName))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(preview)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bundles", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newRouter(ingester handlers.Ingester, catalog *stubCatalog) *gin.Engine {
	return handlers.NewRouter(handlers.Routes{
		Health:  handlers.NewHealthHandler(catalog),
		Bundles: handlers.NewBundlesHandler(ingester, 1<<20, nil),
		Assets:  handlers.NewAssetsHandler(catalog),
	})
}

func TestHealthHandler(t *testing.T) {
	router := newRouter(&stubIngester{}, &stubCatalog{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestHealthHandler_CatalogDown(t *testing.T) {
	router := newRouter(&stubIngester{}, &stubCatalog{pingErr: errors.New("down")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBundlesHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		result services.Result
		want   int
	}{
		{"committed", services.Result{State: models.StateCommitted, Bundle: &models.AssetBundle{Filename: "IMG_0001.NEF"}}, http.StatusCreated},
		{"skipped", services.Result{State: models.StateSkipped, Err: services.ErrDuplicateAsset}, http.StatusOK},
		{"unreadable raw", services.Result{State: models.StateFailed, Err: fmt.Errorf("%w: bad", services.ErrMetadataExtraction)}, http.StatusUnprocessableEntity},
		{"upload", services.Result{State: models.StateFailed, Err: fmt.Errorf("%w: bucket", services.ErrUpload)}, http.StatusBadGateway},
		{"commit", services.Result{State: models.StateFailed, Err: fmt.Errorf("%w: db", services.ErrCatalogCommit)}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.result.BundleID = uuid.New()
			tt.result.Filename = "IMG_0001.NEF"
			ingester := &stubIngester{result: tt.result}
			router := newRouter(ingester, &stubCatalog{})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, bundleRequest(t, "IMG_0001.NEF", []byte("raw"), "IMG_0001.JPG", fixtures.JPEG))

			assert.Equal(t, tt.want, w.Code)
			var resp models.IngestResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.result.State, resp.State)
			assert.Equal(t, tt.result.BundleID.String(), resp.BundleID)
			assert.Len(t, resp.Progress, 1)
			if tt.result.Err != nil {
				assert.NotEmpty(t, resp.Error)
			}

			assert.Equal(t, "IMG_0001.NEF", ingester.got.Raw.Filename)
			assert.Equal(t, "IMG_0001.JPG", ingester.got.Preview.Filename)
			assert.Equal(t, "image/jpeg", ingester.got.Preview.ContentType)
		})
	}
}

func TestBundlesHandler_MissingPreview(t *testing.T) {
	router := newRouter(&stubIngester{}, &stubCatalog{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, bundleRequest(t, "IMG_0001.NEF", []byte("raw"), "", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing preview file")
}

func TestAssetsHandler_GetAsset(t *testing.T) {
	catalog := &stubCatalog{assets: []models.AssetBundle{{Filename: "IMG_0001.NEF", Verdict: models.Verdict{Score: 9, Rating: 5, Flag: models.FlagPick}}}}
	router := newRouter(&stubIngester{}, catalog)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets/IMG_0001.NEF", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var asset models.AssetBundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &asset))
	assert.Equal(t, models.FlagPick, asset.Verdict.Flag)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets/missing.NEF", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssetsHandler_ListAssets(t *testing.T) {
	catalog := &stubCatalog{}
	router := newRouter(&stubIngester{}, catalog)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, catalog.limit)
	assert.JSONEq(t, `{"assets":[],"count":0}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets?limit=1000", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, catalog.limit)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBundlesHandler_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(database.SQLite, filepath.Join(dir, "lumina.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = database.NewMigrator(db, database.SQLite, nil).Run()
	require.NoError(t, err)

	catalog := database.NewCatalogStore(db, database.SQLite)
	blobs, err := storage.NewLocal(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	svc := services.NewIngestService(catalog, blobs, nil, nil, nil, services.Options{})

	router := handlers.NewRouter(handlers.Routes{
		Health:  handlers.NewHealthHandler(catalog),
		Bundles: handlers.NewBundlesHandler(svc, 1<<20, nil),
		Assets:  handlers.NewAssetsHandler(catalog),
	})
	raw := fixtures.Raw("NIKON Z 6_2", "2026:01:10 14:30:00")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, bundleRequest(t, "IMG_0001.NEF", raw, "IMG_0001.JPG", fixtures.JPEG))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StateCommitted, resp.State)
	require.NotNil(t, resp.Asset)
	assert.Equal(t, "assets/2026/2026-01-10/raw/IMG_0001.NEF", resp.Asset.Paths.Raw)
	assert.Equal(t, models.FlagNone, resp.Asset.Verdict.Flag)
	assert.FileExists(t, filepath.Join(dir, "blobs", "assets", "2026", "2026-01-10", "sidecar", "IMG_0001.xmp"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, bundleRequest(t, "IMG_0001.NEF", raw, "IMG_0001.JPG", fixtures.JPEG))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StateSkipped, resp.State)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assets/IMG_0001.NEF", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
