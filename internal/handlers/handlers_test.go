package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"order-matching-service/internal/clients"
	"order-matching-service/internal/models"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/repository"
	"order-matching-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(router *gin.Engine, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func performJSON(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	return perform(router, method, path, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", services.ErrSessionNotFound), http.StatusNotFound},
		{services.ErrOrderNotFound, http.StatusNotFound},
		{services.ErrBundleMatchNotFound, http.StatusNotFound},
		{fmt.Errorf("item 9: %w", reconcile.ErrItemIndexOutOfRange), http.StatusBadRequest},
		{services.ErrUnknownProduct, http.StatusBadRequest},
		{services.ErrInvalidImport, http.StatusBadRequest},
		{services.ErrInvalidStatus, http.StatusBadRequest},
		{fmt.Errorf("%w: sort", services.ErrInvalidFilter), http.StatusBadRequest},
		{&clients.UnsupportedMarketplaceError{Marketplace: "Etsy"}, http.StatusBadRequest},
		{services.ErrChannelUnavailable, http.StatusServiceUnavailable},
		{services.ErrPullInProgress, http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	failing := NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	router := gin.New()
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)
	router.GET("/ready-failing", failing.Ready)

	w := perform(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order-matching-service", decode(t, w)["service"])

	w = perform(router, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/ready-failing", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decode(t, w)["checks"].(map[string]interface{})
	assert.Equal(t, "connection refused", checks["redis"])
	assert.NotContains(t, checks, "database")
}

func TestProductHandler_List(t *testing.T) {
	repo := new(MockProductRepository)
	repo.On("List", mock.Anything).Return([]models.Product{{ID: "p1", Name: "Blue Mug"}}, nil)

	router := gin.New()
	router.GET("/products", NewProductHandler(repo).List)

	w := perform(router, http.MethodGet, "/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
}

func orderRouter(svc OrderService) *gin.Engine {
	h := NewOrderHandler(svc)
	router := gin.New()
	router.GET("/orders", h.ListComplete)
	router.GET("/orders/incomplete", h.ListIncomplete)
	router.POST("/orders/test", h.CreateTestOrder)
	router.GET("/orders/:id", h.Get)
	router.PUT("/orders/:id/status", h.UpdateStatus)
	router.DELETE("/orders/:id", h.Delete)
	return router
}

func TestOrderHandler(t *testing.T) {
	svc := new(MockOrderService)
	router := orderRouter(svc)

	order := &models.Order{ID: uuid.New(), OrderID: "A-1"}
	missing := uuid.New()
	svc.On("ListComplete", mock.Anything, services.OrderFilter{SortField: services.SortByOrderDate}).
		Return(&services.OrderList{Orders: []models.Order{*order}, Total: 1, IncompleteCount: 4}, nil)
	svc.On("ListIncomplete", mock.Anything, "lamp").Return([]models.Order{}, nil)
	svc.On("Get", mock.Anything, order.ID).Return(order, reconcile.StateComplete, nil)
	svc.On("Get", mock.Anything, missing).Return(nil, reconcile.StateNeedsMatching, services.ErrOrderNotFound)
	svc.On("Delete", mock.Anything, order.ID).Return(nil)
	svc.On("CreateTestOrder", mock.Anything).Return(order, nil)

	w := perform(router, http.MethodGet, "/orders", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(4), body["incompleteCount"])
	assert.Len(t, body["data"], 1)

	w = perform(router, http.MethodGet, "/orders/incomplete?search=lamp", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/orders/"+order.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "complete", decode(t, w)["state"])

	w = perform(router, http.MethodGet, "/orders/"+missing.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(router, http.MethodGet, "/orders/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodDelete, "/orders/"+order.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodPost, "/orders/test", nil, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.AssertExpectations(t)
}

func multipartBody(t *testing.T, fileName, content, marketplace string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("marketplace", marketplace))
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestImportHandler(t *testing.T) {
	importer := new(MockOrderImporter)
	h := NewImportHandler(importer)
	router := gin.New()
	router.GET("/import/template", h.GetTemplate)
	router.POST("/import/preview", h.Preview)
	router.POST("/import", h.Import)

	csv := "order_id,product_sku\nA-1,SKU1\n"
	importer.On("Preview", mock.Anything, csv, "orders.csv", models.MarketplaceAmazon).
		Return(&services.ImportPreview{FileName: "orders.csv", TotalRows: 1}, nil)
	importer.On("Import", mock.Anything, csv, "orders.csv", models.MarketplaceEbay).
		Return(nil, fmt.Errorf("%w: no rows", services.ErrInvalidImport))

	body, ct := multipartBody(t, "orders.csv", csv, "amazon")
	w := perform(router, http.MethodPost, "/import/preview", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["totalRows"])

	body, ct = multipartBody(t, "orders.csv", csv, "ebay")
	w = perform(router, http.MethodPost, "/import", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, "", "", "ebay")
	w = perform(router, http.MethodPost, "/import", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, "orders.csv", csv, "")
	w = perform(router, http.MethodPost, "/import", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/import/template", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "order_id,product_sku")

	w = perform(router, http.MethodGet, "/import/template?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "orders_import_template.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders"}, f.GetSheetList())
	f.Close()

	w = perform(router, http.MethodGet, "/import/template?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	importer.AssertExpectations(t)
}

func TestChannelHandler_Pull(t *testing.T) {
	puller := new(MockChannelPuller)
	router := gin.New()
	router.POST("/channels/:marketplace/pull", NewChannelHandler(puller).Pull)

	after := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	puller.On("Pull", mock.Anything, models.MarketplaceShopify, services.PullOptions{CreatedAfter: after}).
		Return(&services.PullResult{Marketplace: models.MarketplaceShopify, Created: 3}, nil)
	puller.On("Pull", mock.Anything, models.MarketplaceShopify, services.PullOptions{}).
		Return(nil, services.ErrChannelUnavailable)

	w := perform(router, http.MethodPost, "/channels/shopify/pull?createdAfter=2024-05-01T00:00:00Z", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["data"].(map[string]interface{})["created"])

	w = perform(router, http.MethodPost, "/channels/Shopify/pull", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = perform(router, http.MethodPost, "/channels/shopify/pull?createdAfter=yesterday", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	puller.AssertExpectations(t)
}

func TestBundleMatchHandler(t *testing.T) {
	svc := new(MockBundleMatchService)
	h := NewBundleMatchHandler(svc)
	router := gin.New()
	router.GET("/bundle-matches", h.List)
	router.DELETE("/bundle-matches/:id", h.Delete)

	id := uuid.New()
	missing := uuid.New()
	svc.On("List", mock.Anything, "mug").Return([]services.BundleMatchView{{ProductNames: []string{"Blue Mug"}}}, nil)
	svc.On("Delete", mock.Anything, id).Return(nil)
	svc.On("Delete", mock.Anything, missing).Return(services.ErrBundleMatchNotFound)

	w := perform(router, http.MethodGet, "/bundle-matches?search=mug", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = perform(router, http.MethodDelete, "/bundle-matches/"+id.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodDelete, "/bundle-matches/"+missing.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.AssertExpectations(t)
}

func TestActivityHandler_List(t *testing.T) {
	lister := new(MockActivityLister)
	router := gin.New()
	router.GET("/activity-logs", NewActivityHandler(lister).List)

	lister.On("List", mock.Anything, repository.ActivityListOptions{ActivityType: "product_match", Limit: 50}).
		Return([]models.ActivityLog{{ActivityType: models.ActivityProductMatch}}, int64(7), nil)
	lister.On("List", mock.Anything, repository.ActivityListOptions{Limit: 10, Offset: 20}).
		Return(nil, int64(0), errors.New("db down"))

	w := perform(router, http.MethodGet, "/activity-logs?type=product_match&limit=-3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(7), body["total"])
	assert.Equal(t, float64(50), body["limit"])

	w = perform(router, http.MethodGet, "/activity-logs?limit=10&offset=20", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	lister.AssertExpectations(t)
}

func sessionRouter(r Reconciler) *gin.Engine {
	h := NewSessionHandler(r)
	router := gin.New()
	sessions := router.Group("/sessions")
	sessions.POST("", h.Create)
	sessions.GET("/:sessionId", h.Get)
	sessions.POST("/:sessionId/orders/:orderId/open", h.OpenOrder)
	sessions.PUT("/:sessionId/orders/:orderId/items/:index", h.SelectProducts)
	sessions.POST("/:sessionId/orders/:orderId/items/:index/toggle", h.ToggleProduct)
	sessions.DELETE("/:sessionId/orders/:orderId/items/:index", h.ClearItem)
	sessions.POST("/:sessionId/reset-auto-matches", h.ResetAutoMatches)
	sessions.POST("/:sessionId/save", h.Save)
	return router
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	r := new(MockReconciler)
	router := sessionRouter(r)

	orderID := uuid.New()
	ws := &services.Workspace{SessionID: "s1", AutoApplied: 1}
	r.On("StartSession").Return(&services.SessionView{ID: "s1", Selections: []services.SessionSelection{}})
	r.On("GetSession", "s1").Return(&services.SessionView{ID: "s1"}, nil)
	r.On("GetSession", "gone").Return(nil, services.ErrSessionNotFound)
	r.On("OpenOrder", mock.Anything, "s1", orderID).Return(ws, nil)
	r.On("SelectProducts", mock.Anything, "s1", orderID, 0, []string{"p1", "p2"}).Return(ws, nil)
	r.On("SelectProducts", mock.Anything, "s1", orderID, 9, []string{"p1"}).
		Return(nil, fmt.Errorf("item 9: %w", reconcile.ErrItemIndexOutOfRange))
	r.On("ToggleProduct", mock.Anything, "s1", orderID, 1, "p3").Return(ws, nil)
	r.On("ClearItem", mock.Anything, "s1", orderID, 1).Return(ws, nil)
	r.On("ResetAutoMatches", "s1").Return(&services.SessionView{ID: "s1"}, nil)

	w := perform(router, http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", decode(t, w)["data"].(map[string]interface{})["id"])

	w = perform(router, http.MethodGet, "/sessions/s1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/sessions/gone", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	base := "/sessions/s1/orders/" + orderID.String()

	w = perform(router, http.MethodPost, base+"/open", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["data"].(map[string]interface{})["autoApplied"])

	w = performJSON(router, http.MethodPut, base+"/items/0", SelectRequest{ProductIDs: []string{"p1", "p2"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodPut, base+"/items/9", SelectRequest{ProductIDs: []string{"p1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodPut, base+"/items/x", SelectRequest{ProductIDs: []string{"p1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodPost, base+"/items/1/toggle", ToggleRequest{ProductID: "p3"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodPost, base+"/items/1/toggle", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodDelete, base+"/items/1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodPost, "/sessions/s1/orders/nope/open", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPost, "/sessions/s1/reset-auto-matches", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	r.AssertExpectations(t)
}

func TestSessionHandler_Save(t *testing.T) {
	r := new(MockReconciler)
	router := sessionRouter(r)

	a, b := uuid.New(), uuid.New()
	r.On("SaveMatches", mock.Anything, "all", []uuid.UUID(nil)).
		Return(&services.SaveResult{Saved: []services.OrderOutcome{{OrderID: a}}}, nil)
	r.On("SaveMatches", mock.Anything, "partial", []uuid.UUID{a, b}).
		Return(&services.SaveResult{
			Saved:  []services.OrderOutcome{{OrderID: a}},
			Failed: []services.OrderFailure{{OrderID: b, Error: "product gone"}},
		}, nil)
	r.On("SaveMatches", mock.Anything, "failed", []uuid.UUID{b}).
		Return(&services.SaveResult{Failed: []services.OrderFailure{{OrderID: b, Error: "product gone"}}}, nil)
	r.On("SaveMatches", mock.Anything, "gone", []uuid.UUID(nil)).Return(nil, services.ErrSessionNotFound)

	w := perform(router, http.MethodPost, "/sessions/all/save", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodPost, "/sessions/partial/save", SaveRequest{OrderIDs: []uuid.UUID{a, b}})
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	failed := decode(t, w)["data"].(map[string]interface{})["failed"].([]interface{})
	require.Len(t, failed, 1)
	assert.Equal(t, "product gone", failed[0].(map[string]interface{})["error"])

	w = performJSON(router, http.MethodPost, "/sessions/failed/save", SaveRequest{OrderIDs: []uuid.UUID{b}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = perform(router, http.MethodPost, "/sessions/gone/save", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(router, http.MethodPost, "/sessions/all/save", []byte("{bad"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// chunked request with no body
	req := httptest.NewRequest(http.MethodPost, "/sessions/all/save", bytes.NewReader(nil))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	r.AssertNumberOfCalls(t, "SaveMatches", 5)

	r.AssertExpectations(t)
}

func TestOrderHandler_ListCompleteFilters(t *testing.T) {
	svc := new(MockOrderService)
	router := orderRouter(svc)

	svc.On("ListComplete", mock.Anything, services.OrderFilter{
		Search:      "jane",
		Status:      "shipped",
		Marketplace: "eBay",
		DateRange:   "last7days",
		SortField:   services.SortByTotal,
		Ascending:   true,
	}).Return(&services.OrderList{Orders: []models.Order{}}, nil).Once()
	svc.On("ListComplete", mock.Anything, services.OrderFilter{DateRange: "someday", SortField: services.SortByOrderDate}).
		Return(nil, fmt.Errorf("%w: unknown date range", services.ErrInvalidFilter)).Once()

	w := perform(router, http.MethodGet,
		"/orders?search=jane&status=shipped&marketplace=eBay&date=last7days&sort=total&direction=asc", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/orders?date=someday", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/orders?direction=up", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	svc := new(MockOrderService)
	router := orderRouter(svc)

	id, missing := uuid.New(), uuid.New()
	svc.On("UpdateStatus", mock.Anything, id, "shipped").
		Return(&models.Order{ID: id, OrderID: "A-1", OrderStatus: "shipped"}, nil)
	svc.On("UpdateStatus", mock.Anything, id, "lost").
		Return(nil, fmt.Errorf("%w: %q", services.ErrInvalidStatus, "lost"))
	svc.On("UpdateStatus", mock.Anything, missing, "shipped").Return(nil, services.ErrOrderNotFound)

	w := performJSON(router, http.MethodPut, "/orders/"+id.String()+"/status", UpdateStatusRequest{Status: "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shipped", decode(t, w)["data"].(map[string]interface{})["orderStatus"])

	w = performJSON(router, http.MethodPut, "/orders/"+id.String()+"/status", UpdateStatusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodPut, "/orders/"+missing.String()+"/status", UpdateStatusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performJSON(router, http.MethodPut, "/orders/"+id.String()+"/status", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodPut, "/orders/nope/status", UpdateStatusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}
