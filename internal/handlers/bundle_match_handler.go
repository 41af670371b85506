package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-matching-service/internal/services"
)

// BundleMatchService lists and removes remembered matches
type BundleMatchService interface {
	List(ctx context.Context, search string) ([]services.BundleMatchView, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BundleMatchHandler handles bundle match endpoints
type BundleMatchHandler struct {
	service BundleMatchService
}

// NewBundleMatchHandler creates a new bundle match handler
func NewBundleMatchHandler(service BundleMatchService) *BundleMatchHandler {
	return &BundleMatchHandler{service: service}
}

// List returns bundle matches, optionally filtered by search
func (h *BundleMatchHandler) List(c *gin.Context) {
	matches, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matches, "total": len(matches)})
}

// Delete forgets a bundle match
func (h *BundleMatchHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bundle match deleted"})
}
