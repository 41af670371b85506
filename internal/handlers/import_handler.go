package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"order-matching-service/internal/models"
	"order-matching-service/internal/services"
)

// OrderImporter parses and stores order files
type OrderImporter interface {
	Preview(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*services.ImportPreview, error)
	Import(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*services.ImportResult, error)
}

// ImportHandler handles order file import endpoints
type ImportHandler struct {
	importer OrderImporter
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer OrderImporter) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// GetTemplate downloads an import template as CSV or XLSX
func (h *ImportHandler) GetTemplate(c *gin.Context) {
	format := services.ImportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))

	var contentType string
	switch format {
	case services.ImportFormatCSV:
		contentType = "text/csv"
	case services.ImportFormatXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	var buf bytes.Buffer
	if err := services.WriteTemplate(&buf, format); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=orders_import_template.%s", format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Preview parses an uploaded file without storing anything
func (h *ImportHandler) Preview(c *gin.Context) {
	h.handleUpload(c, func(ctx context.Context, file io.Reader, name string, marketplace models.Marketplace) (interface{}, error) {
		return h.importer.Preview(ctx, file, name, marketplace)
	})
}

// Import stores the orders of an uploaded file
func (h *ImportHandler) Import(c *gin.Context) {
	h.handleUpload(c, func(ctx context.Context, file io.Reader, name string, marketplace models.Marketplace) (interface{}, error) {
		return h.importer.Import(ctx, file, name, marketplace)
	})
}

func (h *ImportHandler) handleUpload(c *gin.Context, run func(context.Context, io.Reader, string, models.Marketplace) (interface{}, error)) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	marketplace := models.ParseMarketplace(c.PostForm("marketplace"))
	if marketplace == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "marketplace is required"})
		return
	}

	result, err := run(c.Request.Context(), file, header.Filename, marketplace)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
