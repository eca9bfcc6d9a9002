package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spacesedan/sentiscope/internal/api/handler"
	"github.com/spacesedan/sentiscope/internal/api/middleware"
)

// Setup creates and configures the Gin router
func Setup(h *handler.Handler, maxUploadBytes int64) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	router.GET("/", h.Index)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/analyze", h.Analyze)
	router.POST("/analyze_batch", h.AnalyzeBatch)
	router.POST("/upload_csv", h.UploadCSV)

	return router
}
