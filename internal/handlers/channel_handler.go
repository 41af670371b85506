package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"order-matching-service/internal/models"
	"order-matching-service/internal/services"
)

// ChannelPuller fetches orders from a sales channel
type ChannelPuller interface {
	Pull(ctx context.Context, marketplace models.Marketplace, opts services.PullOptions) (*services.PullResult, error)
}

// ChannelHandler handles sales channel endpoints
type ChannelHandler struct {
	puller ChannelPuller
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(puller ChannelPuller) *ChannelHandler {
	return &ChannelHandler{puller: puller}
}

// Pull imports new orders from the marketplace in the path. The optional
// createdAfter query parameter is an RFC 3339 timestamp.
func (h *ChannelHandler) Pull(c *gin.Context) {
	marketplace := models.ParseMarketplace(c.Param("marketplace"))

	var opts services.PullOptions
	if v := c.Query("createdAfter"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "createdAfter must be an RFC 3339 timestamp"})
			return
		}
		opts.CreatedAfter = t
	}

	result, err := h.puller.Pull(c.Request.Context(), marketplace, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
