package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"lumina-backend/internal/models"
)

type fakeCatalog struct {
	mu        sync.Mutex
	records   map[string]models.AssetBundle
	existsErr error
	commitErr error
	exists    int
	commits   int
	// racer is committed just before the next Commit, as a concurrent
	// ingest in another process would be.
	racer *models.AssetBundle
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: make(map[string]models.AssetBundle)}
}

func (c *fakeCatalog) Exists(_ context.Context, filename string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exists++
	if c.existsErr != nil {
		return false, c.existsErr
	}
	_, ok := c.records[filename]
	return ok, nil
}

func (c *fakeCatalog) Commit(_ context.Context, bundle *models.AssetBundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits++
	if c.commitErr != nil {
		return c.commitErr
	}
	if c.racer != nil {
		c.records[c.racer.Filename] = *c.racer
		c.racer = nil
	}
	if _, ok := c.records[bundle.Filename]; ok {
		return models.ErrAssetExists
	}
	c.records[bundle.Filename] = *bundle
	return nil
}

func (c *fakeCatalog) Get(_ context.Context, filename string) (*models.AssetBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.records[filename]
	if !ok {
		return nil, models.ErrAssetNotFound
	}
	return &b, nil
}

func (c *fakeCatalog) Recent(context.Context, int) ([]models.AssetBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.AssetBundle, 0, len(c.records))
	for _, b := range c.records {
		out = append(out, b)
	}
	return out, nil
}

func (c *fakeCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
	puts    int
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (b *fakeBlobs) Put(_ context.Context, path, contentType string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.failOn != "" && strings.Contains(path, "/"+b.failOn+"/") {
		return "", errors.New("bucket unavailable")
	}
	b.objects[path] = data
	b.types[path] = contentType
	return "https://cdn.test/" + path, nil
}

func (b *fakeBlobs) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, path)
	delete(b.objects, path)
	return nil
}

func (b *fakeBlobs) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	result   *models.VisionAnalysis
	err      error
	block    bool
	calls    int
	mimeType string
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, _ []byte, mimeType string) (*models.VisionAnalysis, error) {
	a.mu.Lock()
	a.calls++
	a.mimeType = mimeType
	block, result, err := a.block, a.result, a.err
	a.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return result, err
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func score(v float64) *models.Score {
	s := models.Score(v)
	return &s
}

func strongAnalysis() *models.VisionAnalysis {
	return &models.VisionAnalysis{
		Keywords: []string{"portrait", "window light"},
		Analysis: &models.AnalysisNotes{Subject: "A woman by a window"},
		Technical: &models.TechnicalScores{
			FocusScore:    score(9),
			NoiseScore:    score(9),
			ExposureScore: score(9),
		},
		Composition: &models.CompositionScores{Score: score(9)},
		Aesthetic:   &models.AestheticScores{Score: score(9)},
	}
}

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
