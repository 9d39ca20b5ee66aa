package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lumina-backend/internal/layout"
	"lumina-backend/internal/metadata"
	"lumina-backend/internal/models"
	"lumina-backend/internal/progress"
	"lumina-backend/internal/sidecar"
	"lumina-backend/internal/verdict"
)

const (
	rawContentType     = "application/octet-stream"
	sidecarContentType = "application/rdf+xml"

	defaultVisionTimeout = 60 * time.Second
)

type Options struct {
	// VisionTimeout bounds one vision-analysis call, retries included.
	VisionTimeout time.Duration
	// RollbackOnFailure deletes already stored artifacts of a bundle whose
	// upload or commit failed. Off by default: failed bundles leave their
	// artifacts in place.
	RollbackOnFailure bool
	// Now is the clock used for capture-time fallback and uploadedAt.
	Now func() time.Time
}

// IngestService runs the per-bundle ingestion pipeline.
type IngestService struct {
	catalog  Catalog
	blobs    BlobStore
	analyzer Analyzer
	sink     progress.Sink
	logger   *slog.Logger
	opts     Options
	locks    *filenameLocks
}

// NewIngestService wires the pipeline. analyzer may be nil, in which case
// every bundle is committed with the fallback verdict.
func NewIngestService(
	catalog Catalog,
	blobs BlobStore,
	analyzer Analyzer,
	sink progress.Sink,
	logger *slog.Logger,
	opts Options,
) *IngestService {
	if sink == nil {
		sink = progress.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.VisionTimeout <= 0 {
		opts.VisionTimeout = defaultVisionTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &IngestService{
		catalog:  catalog,
		blobs:    blobs,
		analyzer: analyzer,
		sink:     sink,
		logger:   logger.With("component", "ingest"),
		opts:     opts,
		locks:    newFilenameLocks(),
	}
}

// Result is the terminal outcome of one bundle.
type Result struct {
	BundleID uuid.UUID
	Filename string
	State    models.BundleState
	Bundle   *models.AssetBundle
	Err      error
}

func (r Result) Committed() bool { return r.State == models.StateCommitted }
func (r Result) Skipped() bool   { return r.State == models.StateSkipped }
func (r Result) Failed() bool    { return r.State == models.StateFailed }

// run carries the per-bundle progress plumbing.
type run struct {
	id       uuid.UUID
	filename string
	sink     progress.Sink
	now      func() time.Time
}

func (r *run) emit(ctx context.Context, state models.BundleState, level, format string, args ...any) {
	r.sink.Emit(ctx, models.ProgressEvent{
		BundleID: r.id,
		Filename: r.filename,
		State:    state,
		Level:    level,
		Message:  fmt.Sprintf(format, args...),
		Time:     r.now().UTC(),
	})
}

func (r *run) result(state models.BundleState, bundle *models.AssetBundle, err error) Result {
	return Result{BundleID: r.id, Filename: r.filename, State: state, Bundle: bundle, Err: err}
}

func (r *run) fail(ctx context.Context, err error) Result {
	r.emit(ctx, models.StateFailed, progress.LevelError, "%s failed: %v", r.filename, err)
	return r.result(models.StateFailed, nil, err)
}

// Ingest runs one bundle to a terminal state. Events go to the service sink
// and to every observer.
func (s *IngestService) Ingest(ctx context.Context, in models.BundleInput, observers ...progress.Sink) Result {
	r := &run{
		id:       uuid.New(),
		filename: in.Raw.Filename,
		sink:     progress.Multi(append([]progress.Sink{s.sink}, observers...)...),
		now:      s.opts.Now,
	}
	r.emit(ctx, models.StateQueued, progress.LevelInfo, "queued %s (raw %s, preview %s)",
		in.Raw.Filename, humanize.Bytes(uint64(len(in.Raw.Data))), humanize.Bytes(uint64(len(in.Preview.Data))))

	if strings.TrimSpace(in.Raw.Filename) == "" {
		return r.fail(ctx, errors.New("raw filename is required"))
	}

	unlock := s.locks.Lock(in.Raw.Filename)
	defer unlock()

	exists, err := s.catalog.Exists(ctx, in.Raw.Filename)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("%w: %w", ErrCatalogLookup, err))
	}
	r.emit(ctx, models.StateDuplicateChecked, progress.LevelInfo, "checked catalog for %s", in.Raw.Filename)
	if exists {
		r.emit(ctx, models.StateSkipped, progress.LevelInfo, "%s is already cataloged, skipping", in.Raw.Filename)
		return r.result(models.StateSkipped, nil, fmt.Errorf("%w: %s", ErrDuplicateAsset, in.Raw.Filename))
	}

	rec, err := metadata.Extract(in.Raw.Data, s.opts.Now())
	if err != nil {
		return r.fail(ctx, fmt.Errorf("%w: %w", ErrMetadataExtraction, err))
	}
	r.emit(ctx, models.StateExtracted, progress.LevelInfo, "read metadata: %s, %s, ISO %s, %s %s",
		rec.Camera, rec.Lens, rec.ISO, rec.Aperture, rec.Shutter)
	if rec.CaptureTimeSource == models.CaptureTimeFromIngest {
		r.emit(ctx, models.StateExtracted, progress.LevelWarn,
			"no usable capture timestamp in %s, partitioning by ingest time", in.Raw.Filename)
	}

	paths := layout.Plan(in.Raw.Filename, in.Preview.Filename, rec.CaptureTime)
	folderDate := layout.FolderDate(rec.CaptureTime)
	r.emit(ctx, models.StatePathPlanned, progress.LevelInfo, "planned storage under %s", folderDate)

	analysis, err := s.analyze(ctx, in.Preview)
	if err != nil {
		r.emit(ctx, models.StateAnalyzed, progress.LevelWarn, "vision analysis unavailable, continuing without verdict: %v", err)
	} else {
		r.emit(ctx, models.StateAnalyzed, progress.LevelInfo, "vision analysis returned %d keywords", len(analysis.Keywords))
	}

	v := verdict.Evaluate(analysis)
	r.emit(ctx, models.StateVerdicted, progress.LevelInfo, "verdict %s, score %.1f, rating %d/5",
		strings.ToUpper(string(v.Flag)), v.Score, v.Rating)

	doc := sidecar.Generate(in.Raw.Filename, rec, v, analysis)
	r.emit(ctx, models.StateSidecarBuilt, progress.LevelInfo, "built sidecar %s (%s)",
		doc.Filename, humanize.Bytes(uint64(len(doc.Content))))

	total := len(in.Raw.Data) + len(in.Preview.Data) + len(doc.Content)
	r.emit(ctx, models.StateUploading, progress.LevelInfo, "uploading 3 artifacts (%s)", humanize.Bytes(uint64(total)))

	urls, err := s.upload(ctx, r, paths, in, doc)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("%w: %w", ErrUpload, err))
	}

	bundle := &models.AssetBundle{
		ID:          r.id,
		Filename:    in.Raw.Filename,
		CaptureDate: rec.CaptureTime.UTC(),
		FolderDate:  folderDate,
		Meta:        models.MetaFrom(rec),
		Verdict:     v,
		Paths:       paths,
		URLs:        urls,
		AIAnalysis:  analysis,
		UploadedAt:  s.opts.Now().UTC(),
	}

	if err := s.catalog.Commit(ctx, bundle); err != nil {
		if errors.Is(err, models.ErrAssetExists) {
			s.yieldToCommitted(ctx, r, in.Raw.Filename, rec, paths)
			r.emit(ctx, models.StateSkipped, progress.LevelWarn, "%s was cataloged concurrently, skipping", in.Raw.Filename)
			return r.result(models.StateSkipped, nil, fmt.Errorf("%w: %w", ErrDuplicateAsset, err))
		}
		s.rollback(ctx, r, []string{paths.Raw, paths.Preview, paths.Sidecar})
		return r.fail(ctx, fmt.Errorf("%w: %w", ErrCatalogCommit, err))
	}

	r.emit(ctx, models.StateCommitted, progress.LevelInfo, "cataloged %s as %s", in.Raw.Filename, v.Flag)
	return r.result(models.StateCommitted, bundle, nil)
}

func (s *IngestService) analyze(ctx context.Context, preview models.PreviewAsset) (*models.VisionAnalysis, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("%w: no analyzer configured", ErrVisionAnalysis)
	}
	if len(preview.Data) == 0 {
		return nil, fmt.Errorf("%w: empty preview", ErrVisionAnalysis)
	}
	contentType := preview.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(preview.Data)
	}

	actx, cancel := context.WithTimeout(ctx, s.opts.VisionTimeout)
	defer cancel()

	analysis, err := s.analyzer.Analyze(actx, preview.Data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVisionAnalysis, err)
	}
	if analysis == nil {
		return nil, fmt.Errorf("%w: empty result", ErrVisionAnalysis)
	}
	return analysis, nil
}

type artifactUpload struct {
	kind        string
	path        string
	contentType string
	data        []byte
}

// upload stores the three artifacts concurrently and waits for all of them.
func (s *IngestService) upload(ctx context.Context, r *run, paths models.Artifacts, in models.BundleInput, doc models.SidecarDocument) (models.Artifacts, error) {
	previewType := in.Preview.ContentType
	if previewType == "" {
		previewType = http.DetectContentType(in.Preview.Data)
	}
	uploads := []artifactUpload{
		{kind: layout.RawKind, path: paths.Raw, contentType: rawContentType, data: in.Raw.Data},
		{kind: layout.PreviewKind, path: paths.Preview, contentType: previewType, data: in.Preview.Data},
		{kind: layout.SidecarKind, path: paths.Sidecar, contentType: sidecarContentType, data: doc.Content},
	}

	urls := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range uploads {
		g.Go(func() error {
			url, err := s.blobs.Put(gctx, u.path, u.contentType, u.data)
			if err != nil {
				return fmt.Errorf("%s artifact: %w", u.kind, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var stored []string
		for i, u := range uploads {
			if urls[i] != "" {
				stored = append(stored, u.path)
			}
		}
		s.rollback(ctx, r, stored)
		return models.Artifacts{}, err
	}

	return models.Artifacts{Raw: urls[0], Preview: urls[1], Sidecar: urls[2]}, nil
}

// yieldToCommitted reconciles storage with the record another ingest
// committed first. When both runs planned the same paths, this run's upserts
// replaced the stored sidecar, so it is rewritten from the committed verdict
// and analysis. Otherwise this run's artifacts are orphans and go through
// rollback.
func (s *IngestService) yieldToCommitted(ctx context.Context, r *run, filename string, rec models.MetadataRecord, paths models.Artifacts) {
	ctx = context.WithoutCancel(ctx)
	committed, err := s.catalog.Get(ctx, filename)
	if err != nil {
		s.logger.Warn("failed to load committed record", "filename", filename, "error", err)
		return
	}
	if committed.Paths != paths {
		s.rollback(ctx, r, []string{paths.Raw, paths.Preview, paths.Sidecar})
		return
	}
	doc := sidecar.Generate(filename, rec, committed.Verdict, committed.AIAnalysis)
	if _, err := s.blobs.Put(ctx, paths.Sidecar, sidecarContentType, doc.Content); err != nil {
		s.logger.Warn("failed to restore committed sidecar", "path", paths.Sidecar, "filename", filename, "error", err)
		return
	}
	r.emit(ctx, models.StateUploading, progress.LevelInfo, "restored sidecar from the committed %s verdict", committed.Verdict.Flag)
}

// rollback removes stored artifacts when RollbackOnFailure is set. Failures
// are logged and otherwise ignored.
func (s *IngestService) rollback(ctx context.Context, r *run, paths []string) {
	if !s.opts.RollbackOnFailure || len(paths) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	removed := 0
	for _, p := range paths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.logger.Warn("rollback delete failed", "path", p, "filename", r.filename, "error", err)
			continue
		}
		removed++
	}
	r.emit(ctx, models.StateUploading, progress.LevelWarn, "rolled back %d of %d stored artifacts", removed, len(paths))
}
