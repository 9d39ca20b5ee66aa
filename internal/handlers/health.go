package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumina-backend/internal/models"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	catalog Pinger
}

func NewHealthHandler(catalog Pinger) *HealthHandler {
	return &HealthHandler{catalog: catalog}
}

// Health godoc
// @Summary     Health check
// @Description Returns the health status of the API and its catalog
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Failure     503 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.catalog.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.HealthResponse{Status: "degraded", Catalog: "unreachable"})
		return
	}
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Catalog: "ok"})
}
