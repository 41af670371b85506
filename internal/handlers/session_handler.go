package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-matching-service/internal/services"
)

// Reconciler drives matching sessions
type Reconciler interface {
	StartSession() *services.SessionView
	GetSession(sessionID string) (*services.SessionView, error)
	OpenOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (*services.Workspace, error)
	SelectProducts(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int, productIDs []string) (*services.Workspace, error)
	ToggleProduct(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int, productID string) (*services.Workspace, error)
	ClearItem(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int) (*services.Workspace, error)
	ResetAutoMatches(sessionID string) (*services.SessionView, error)
	SaveMatches(ctx context.Context, sessionID string, orderIDs []uuid.UUID) (*services.SaveResult, error)
}

// SelectRequest replaces a line's selection
type SelectRequest struct {
	ProductIDs []string `json:"productIds"`
}

// ToggleRequest adds or removes one product on a line
type ToggleRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// SaveRequest names the orders to save. Empty means every order with a
// selection in the session.
type SaveRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds"`
}

// SessionHandler handles matching session endpoints
type SessionHandler struct {
	reconciler Reconciler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(reconciler Reconciler) *SessionHandler {
	return &SessionHandler{reconciler: reconciler}
}

// Create starts an empty session
func (h *SessionHandler) Create(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"data": h.reconciler.StartSession()})
}

// Get returns a session's selections
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.reconciler.GetSession(c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

// OpenOrder loads an order into the session and applies known bundle matches
func (h *SessionHandler) OpenOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	workspace, err := h.reconciler.OpenOrder(c.Request.Context(), c.Param("sessionId"), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": workspace})
}

// SelectProducts replaces the selection of one line
func (h *SessionHandler) SelectProducts(c *gin.Context) {
	orderID, index, ok := parseLine(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workspace, err := h.reconciler.SelectProducts(c.Request.Context(), c.Param("sessionId"), orderID, index, req.ProductIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": workspace})
}

// ToggleProduct adds or removes one product on a line
func (h *SessionHandler) ToggleProduct(c *gin.Context) {
	orderID, index, ok := parseLine(c)
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workspace, err := h.reconciler.ToggleProduct(c.Request.Context(), c.Param("sessionId"), orderID, index, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": workspace})
}

// ClearItem removes the selection of one line
func (h *SessionHandler) ClearItem(c *gin.Context) {
	orderID, index, ok := parseLine(c)
	if !ok {
		return
	}

	workspace, err := h.reconciler.ClearItem(c.Request.Context(), c.Param("sessionId"), orderID, index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": workspace})
}

// ResetAutoMatches drops every selection that came from a bundle match
func (h *SessionHandler) ResetAutoMatches(c *gin.Context) {
	session, err := h.reconciler.ResetAutoMatches(c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

// Save commits the session's selections. Orders are saved independently;
// failures are reported per order alongside the saved ones.
func (h *SessionHandler) Save(c *gin.Context) {
	// an empty body saves every order in the session
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reconciler.SaveMatches(c.Request.Context(), c.Param("sessionId"), req.OrderIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if len(result.Failed) > 0 && len(result.Saved) == 0 {
		status = http.StatusUnprocessableEntity
	} else if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"data": result})
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseLine(c *gin.Context) (uuid.UUID, int, bool) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return uuid.Nil, 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return uuid.Nil, 0, false
	}
	return orderID, index, true
}
