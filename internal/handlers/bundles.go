package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"lumina-backend/internal/models"
	"lumina-backend/internal/progress"
	"lumina-backend/internal/services"
)

// Ingester runs one bundle through the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, in models.BundleInput, observers ...progress.Sink) services.Result
}

type BundlesHandler struct {
	ingester       Ingester
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewBundlesHandler(ingester Ingester, maxUploadBytes int64, logger *slog.Logger) *BundlesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BundlesHandler{
		ingester:       ingester,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "bundles_handler"),
	}
}

// Ingest godoc
// @Summary     Ingest a raw + preview bundle
// @Description Extracts capture metadata from the raw file, asks the vision service to assess the preview,
// @Description derives a verdict, writes an XMP sidecar, stores all three artifacts and catalogs the bundle.
// @Description A filename that is already cataloged is skipped without side effects.
// @Tags        bundles
// @Accept      multipart/form-data
// @Produce     json
// @Param       raw formData file true "Camera raw file (NEF, CR2, ARW, DNG, ...)"
// @Param       preview formData file true "Rendered preview image (JPEG or PNG)"
// @Success     201 {object} models.IngestResponse "Committed"
// @Success     200 {object} models.IngestResponse "Skipped, already cataloged"
// @Failure     400 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Failure     422 {object} models.IngestResponse "Raw container unreadable"
// @Failure     502 {object} models.IngestResponse "Storage or catalog failure"
// @Router      /bundles [post]
func (h *BundlesHandler) Ingest(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	rawHeader, err := c.FormFile("raw")
	if err != nil {
		h.formError(c, "raw", err)
		return
	}
	previewHeader, err := c.FormFile("preview")
	if err != nil {
		h.formError(c, "preview", err)
		return
	}

	rawData, err := readFormFile(rawHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read raw file", Message: err.Error()})
		return
	}
	previewData, err := readFormFile(previewHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read preview file", Message: err.Error()})
		return
	}

	in := models.BundleInput{
		Raw: models.RawAsset{Filename: path.Base(rawHeader.Filename), Data: rawData},
		Preview: models.PreviewAsset{
			Filename:    path.Base(previewHeader.Filename),
			ContentType: imageContentType(previewHeader),
			Data:        previewData,
		},
	}

	events := &progress.Collector{}
	res := h.ingester.Ingest(c.Request.Context(), in, events)

	resp := models.IngestResponse{
		BundleID: res.BundleID.String(),
		Filename: res.Filename,
		State:    res.State,
		Progress: events.Events(),
		Asset:    res.Bundle,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	status := statusFor(res)
	if status >= http.StatusInternalServerError {
		h.logger.Error("bundle ingest failed", "filename", res.Filename, "bundle_id", res.BundleID.String(), "error", res.Err)
	}
	c.JSON(status, resp)
}

func statusFor(res services.Result) int {
	switch {
	case res.Committed():
		return http.StatusCreated
	case res.Skipped():
		return http.StatusOK
	case errors.Is(res.Err, services.ErrMetadataExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(res.Err, services.ErrUpload),
		errors.Is(res.Err, services.ErrCatalogCommit),
		errors.Is(res.Err, services.ErrCatalogLookup):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (h *BundlesHandler) formError(c *gin.Context, field string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Error:   "upload too large",
			Message: fmt.Sprintf("bundle exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   fmt.Sprintf("missing %s file", field),
		Message: err.Error(),
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", fh.Filename)
	}
	return data, nil
}

// imageContentType keeps a declared image/* type and otherwise leaves
// detection to the pipeline.
func imageContentType(fh *multipart.FileHeader) string {
	ct := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return ""
}
