package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tacit7/poi-markers/internal/cluster"
	"github.com/tacit7/poi-markers/internal/models"
	"github.com/tacit7/poi-markers/internal/service"
	"github.com/tacit7/poi-markers/pkg/response"
)

// ClusterHandler handles HTTP requests for map marker clusters
type ClusterHandler struct {
	service *service.ClusterService
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(service *service.ClusterService) *ClusterHandler {
	return &ClusterHandler{service: service}
}

// clusterQuery binds the viewport, zoom and filter query parameters.
type clusterQuery struct {
	models.ViewportBounds
	Zoom      int    `form:"zoom"`
	Algorithm string `form:"algorithm"` // grid (default) or dbscan
	models.ClusterFilter
}

// GetClusters handles GET /api/v1/clusters
func (h *ClusterHandler) GetClusters(c *gin.Context) {
	var q clusterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	if q.Zoom == 0 {
		q.Zoom = 12
	}
	switch cluster.Algorithm(q.Algorithm) {
	case "", cluster.AlgorithmGrid, cluster.AlgorithmDBSCAN:
	default:
		response.BadRequest(c, "unknown algorithm: "+q.Algorithm)
		return
	}

	result, err := h.service.GetClusters(c.Request.Context(), q.ViewportBounds, q.Zoom,
		q.ClusterFilter, cluster.Algorithm(q.Algorithm))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidBounds):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		response.GatewayTimeout(c, "cluster computation timed out")
		return
	default:
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"markers":  result.Markers,
		"count":    len(result.Markers),
		"degraded": result.Degraded,
	})
}

// InvalidateCache handles POST /api/v1/clusters/invalidate
func (h *ClusterHandler) InvalidateCache(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Reason == "" {
		body.Reason = "manual"
	}

	h.service.InvalidateCache(body.Reason)
	response.Accepted(c, "cache invalidation scheduled")
}

// GetCacheStats handles GET /api/v1/clusters/stats
func (h *ClusterHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, response.Response{
		Code:    0,
		Message: "success",
		Data:    h.service.Stats(),
	})
}
