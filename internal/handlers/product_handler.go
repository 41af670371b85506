package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-matching-service/internal/repository"
)

// ProductHandler serves the product catalog
type ProductHandler struct {
	products repository.ProductRepository
}

// NewProductHandler creates a new product handler
func NewProductHandler(products repository.ProductRepository) *ProductHandler {
	return &ProductHandler{products: products}
}

// List returns every catalog product
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  products,
		"total": len(products),
	})
}
