package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-matching-service/internal/models"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/services"
)

// OrderService is the order queue behaviour the handler depends on
type OrderService interface {
	ListComplete(ctx context.Context, filter services.OrderFilter) (*services.OrderList, error)
	ListIncomplete(ctx context.Context, search string) ([]models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, reconcile.OrderState, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CreateTestOrder(ctx context.Context) (*models.Order, error)
}

// OrderHandler handles order queue endpoints
type OrderHandler struct {
	service OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// UpdateStatusRequest represents the request to change an order's status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListComplete returns orders whose every line is matched, with the number
// of orders still waiting in the matching queue
func (h *OrderHandler) ListComplete(c *gin.Context) {
	filter := services.OrderFilter{
		Search:      c.Query("search"),
		Status:      c.Query("status"),
		Marketplace: c.Query("marketplace"),
		DateRange:   c.Query("date"),
		SortField:   c.DefaultQuery("sort", services.SortByOrderDate),
	}
	switch c.DefaultQuery("direction", "desc") {
	case "asc":
		filter.Ascending = true
	case "desc":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be asc or desc"})
		return
	}

	list, err := h.service.ListComplete(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListIncomplete returns orders that still need matching, optionally filtered
func (h *OrderHandler) ListIncomplete(c *gin.Context) {
	orders, err := h.service.ListIncomplete(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": len(orders)})
}

// Get returns a single order with its completeness state
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	order, state, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  order,
		"state": state.String(),
	})
}

// UpdateStatus changes an order's fulfilment status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// Delete removes an order
func (h *OrderHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

// CreateTestOrder generates a random order that needs matching
func (h *OrderHandler) CreateTestOrder(c *gin.Context) {
	order, err := h.service.CreateTestOrder(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": order})
}
