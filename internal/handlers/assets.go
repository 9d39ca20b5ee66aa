package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lumina-backend/internal/models"
)

const (
	defaultAssetLimit = 50
	maxAssetLimit     = 200
)

// AssetReader is the read side of the catalog.
type AssetReader interface {
	Get(ctx context.Context, filename string) (*models.AssetBundle, error)
	Recent(ctx context.Context, limit int) ([]models.AssetBundle, error)
}

type AssetsHandler struct {
	catalog AssetReader
}

func NewAssetsHandler(catalog AssetReader) *AssetsHandler {
	return &AssetsHandler{catalog: catalog}
}

// GetAsset godoc
// @Summary     Get a cataloged asset
// @Tags        assets
// @Produce     json
// @Param       filename path string true "Raw filename, e.g. IMG_0001.NEF"
// @Success     200 {object} models.AssetBundle
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /assets/{filename} [get]
func (h *AssetsHandler) GetAsset(c *gin.Context) {
	filename := c.Param("filename")
	asset, err := h.catalog.Get(c.Request.Context(), filename)
	if errors.Is(err, models.ErrAssetNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "asset not found", Message: filename})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get asset", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, asset)
}

// ListAssets godoc
// @Summary     List recent assets
// @Description Newest first by capture date.
// @Tags        assets
// @Produce     json
// @Param       limit query int false "Maximum number of assets (default 50, max 200)"
// @Success     200 {object} models.AssetListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /assets [get]
func (h *AssetsHandler) ListAssets(c *gin.Context) {
	limit := defaultAssetLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid limit", Message: raw})
			return
		}
		limit = min(n, maxAssetLimit)
	}

	assets, err := h.catalog.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list assets", Message: err.Error()})
		return
	}
	if assets == nil {
		assets = []models.AssetBundle{}
	}
	c.JSON(http.StatusOK, models.AssetListResponse{Assets: assets, Count: len(assets)})
}
