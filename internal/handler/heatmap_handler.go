package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/caseheat-backend-go/internal/models"
	"github.com/jengzang/caseheat-backend-go/internal/service"
	"github.com/jengzang/caseheat-backend-go/internal/viz"
	"github.com/jengzang/caseheat-backend-go/pkg/response"
)

// HeatmapHandler handles HTTP requests for heatmap data and the time filter
type HeatmapHandler struct {
	service       *service.HeatmapService
	reloadTimeout time.Duration
}

// NewHeatmapHandler creates a new heatmap handler
func NewHeatmapHandler(service *service.HeatmapService, reloadTimeout time.Duration) *HeatmapHandler {
	return &HeatmapHandler{service: service, reloadTimeout: reloadTimeout}
}

type filterRequest struct {
	Min *int64 `json:"min" binding:"required"`
	Max *int64 `json:"max" binding:"required"`
}

// GetPoints handles GET /api/v1/heatmap/points
func (h *HeatmapHandler) GetPoints(c *gin.Context) {
	heatmap, err := h.service.Heatmap()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, heatmap)
}

// GetTimeline handles GET /api/v1/heatmap/timeline
func (h *HeatmapHandler) GetTimeline(c *gin.Context) {
	timeline, err := h.service.Timeline()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, timeline)
}

// GetFilter handles GET /api/v1/heatmap/filter
func (h *HeatmapHandler) GetFilter(c *gin.Context) {
	state, err := h.service.FilterState()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, state)
}

// PutFilter handles PUT /api/v1/heatmap/filter
func (h *HeatmapHandler) PutFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid filter: min and max are required", err)
		return
	}

	state, err := h.service.SetFilter(models.FilterValue{Min: *req.Min, Max: *req.Max})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, state)
}

// DeleteFilter handles DELETE /api/v1/heatmap/filter
func (h *HeatmapHandler) DeleteFilter(c *gin.Context) {
	state, err := h.service.ClearFilter()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, state)
}

// GetTooltip handles GET /api/v1/heatmap/tooltip
func (h *HeatmapHandler) GetTooltip(c *gin.Context) {
	timestamp, err := strconv.ParseInt(c.Query("timestamp"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid timestamp", err)
		return
	}
	weight, err := strconv.Atoi(c.DefaultQuery("weight", "0"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid weight", err)
		return
	}

	response.Success(c, gin.H{
		"text":  viz.FormatTooltip(models.TemporalPoint{Timestamp: timestamp, Weight: weight}),
		"label": viz.FormatLabel(timestamp),
	})
}

// GetDataset handles GET /api/v1/datasets/current
func (h *HeatmapHandler) GetDataset(c *gin.Context) {
	info, err := h.service.Info()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, info)
}

// ReloadDataset handles POST /api/v1/datasets/reload
func (h *HeatmapHandler) ReloadDataset(c *gin.Context) {
	ctx := c.Request.Context()
	if h.reloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.reloadTimeout)
		defer cancel()
	}

	info, err := h.service.Reload(ctx)
	if err != nil {
		response.InternalError(c, "Failed to reload dataset", err)
		return
	}
	response.Success(c, info)
}

func (h *HeatmapHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoDataset):
		response.Error(c, http.StatusConflict, "No dataset loaded", err)
	case errors.Is(err, viz.ErrNoTimeRange):
		response.Error(c, http.StatusNotFound, "Dataset has no time range", err)
	case errors.Is(err, viz.ErrInvertedFilter):
		response.Error(c, http.StatusBadRequest, "Filter min must not be after max", err)
	default:
		response.InternalError(c, "Internal error", err)
	}
}
