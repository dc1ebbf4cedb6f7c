package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tacit7/poi-markers/internal/config"
	"github.com/tacit7/poi-markers/internal/handler"
	"github.com/tacit7/poi-markers/internal/middleware"
	"github.com/tacit7/poi-markers/internal/service"
)

// SetupRouter wires the HTTP surface around the cluster coordinator.
func SetupRouter(cfg *config.Config, clusterService *service.ClusterService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS for the map client
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "POI marker service is running",
		})
	})

	clusterHandler := handler.NewClusterHandler(clusterService)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit, time.Minute))
	{
		clusters := api.Group("/clusters")
		{
			clusters.GET("", clusterHandler.GetClusters)
			clusters.POST("/invalidate", clusterHandler.InvalidateCache)
			clusters.GET("/stats", clusterHandler.GetCacheStats)
		}
	}

	return r
}
