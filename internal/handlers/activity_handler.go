package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"order-matching-service/internal/models"
	"order-matching-service/internal/repository"
)

const defaultActivityLimit = 50

// ActivityLister reads the activity log
type ActivityLister interface {
	List(ctx context.Context, opts repository.ActivityListOptions) ([]models.ActivityLog, int64, error)
}

// ActivityHandler handles activity log queries
type ActivityHandler struct {
	activity ActivityLister
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activity ActivityLister) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List returns activity log entries, newest first
func (h *ActivityHandler) List(c *gin.Context) {
	opts := repository.ActivityListOptions{
		ActivityType: c.Query("type"),
		Limit:        defaultActivityLimit,
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			opts.Offset = offset
		}
	}

	logs, total, err := h.activity.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve activity logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   logs,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
