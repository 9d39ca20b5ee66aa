package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"lumina-backend/internal/middleware"
)

// Routes groups the handlers mounted by NewRouter.
type Routes struct {
	Health  *HealthHandler
	Bundles *BundlesHandler
	Assets  *AssetsHandler
	Logger  *slog.Logger
}

func NewRouter(r Routes) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(r.Logger))
	router.Use(gin.Recovery())

	router.GET("/health", r.Health.Health)

	api := router.Group("/api/v1")
	api.POST("/bundles", r.Bundles.Ingest)
	api.GET("/assets", r.Assets.ListAssets)
	api.GET("/assets/:filename", r.Assets.GetAsset)

	return router
}
