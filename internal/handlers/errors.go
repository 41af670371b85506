package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"order-matching-service/internal/clients"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/services"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var unsupported *clients.UnsupportedMarketplaceError
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrBundleMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnknownProduct),
		errors.Is(err, services.ErrInvalidImport),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidFilter),
		errors.Is(err, reconcile.ErrItemIndexOutOfRange),
		errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPullInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrChannelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
