package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salla-analytics/internal/config"
	"salla-analytics/internal/models"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/services"
	"salla-analytics/internal/warehouse"
)

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8084"},
			TrustedProxies: []string{"127.0.0.1"},
		},
		Dashboard: config.DashboardConfig{
			TopProducts:        15,
			TopCategories:      10,
			CategoriesPerState: 5,
			TopStores:          10,
			GrowthHeatmapRows:  25,
		},
	}
}

func newTestAnalytics() *services.Analytics {
	day := func(s string) time.Time {
		t, _ := time.Parse(time.DateOnly, s)
		return t
	}
	items := []models.OrderItem{
		{OrderID: "o1", ProductID: "p1", SellerID: "s1", CustomerID: "c1", PurchasedAt: day("2023-01-10"), Quantity: 1, ItemPrice: 100, ShippingPrice: 10},
		{OrderID: "o2", ProductID: "p2", SellerID: "s1", CustomerID: "c2", PurchasedAt: day("2023-02-11"), Quantity: 2, ItemPrice: 40, ShippingPrice: 5},
		{OrderID: "o3", ProductID: "p1", SellerID: "s2", CustomerID: "c1", PurchasedAt: day("2023-03-12"), Quantity: 1, ItemPrice: 100, ShippingPrice: 10},
	}
	products := []models.Product{
		{ProductID: "p1", Category: "electronics"},
		{ProductID: "p2", Category: "toys"},
	}
	customers := []models.CustomerVersion{
		{CustomerID: "c1", State: "SP", EffectiveFrom: day("2022-01-01")},
		{CustomerID: "c2", State: "RJ", EffectiveFrom: day("2022-01-01")},
	}
	return services.NewAnalytics(warehouse.NewMemory(items, products, customers), observability.Discard())
}

func newTestHandler() http.Handler {
	return newHandler(testConfig(), newTestAnalytics(), observability.Discard())
}

func TestServer_Routes(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		path        string
		contentType string
	}{
		{"/", "text/html"},
		{"/health", "application/json"},
		{"/admin/stats", "application/json"},
		{"/api/regions", "application/json"},
		{"/api/top-products", "application/json"},
		{"/api/popular-categories", "application/json"},
		{"/api/avg-sale-by-category", "application/json"},
		{"/api/time-series?granularity=quarter", "application/json"},
		{"/api/top-categories-by-location", "application/json"},
		{"/api/location-heatmap", "application/json"},
		{"/api/top-stores", "application/json"},
		{"/api/store-growth", "application/json"},
		{"/api/growth-heatmap", "application/json"},
		{"/api/cohorts", "application/json"},
		{"/api/cohort-heatmap?metric=customers", "application/json"},
		{"/api/retention", "application/json"},
		{"/api/cohort-summary", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

			if tt.contentType == "application/json" {
				var result struct {
					Success bool `json:"success"`
				}
				require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
				assert.True(t, result.Success)
			}
		})
	}
}

func TestServer_SSERoutes(t *testing.T) {
	h := newTestHandler()

	for _, route := range []string{
		"/sse/top-products", "/sse/categories", "/sse/time-series", "/sse/location",
		"/sse/top-stores", "/sse/growth", "/sse/cohorts", "/sse/refresh-all",
	} {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, route, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
			assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
			assert.NotContains(t, w.Body.String(), "error-banner")
		})
	}
}

func TestServer_ErrorHandling(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodPost, "/api/top-products", http.StatusMethodNotAllowed},
		{http.MethodPut, "/", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/health", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/top-products?limit=500", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestDashboardPage(t *testing.T) {
	w := httptest.NewRecorder()
	dashboardHandler(testConfig().Dashboard)(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Salla Sales Analytics")
	for _, section := range []string{
		"Top Products by Region",
		"Popular Categories",
		"Sales Over Time",
		"Top Categories by State",
		"Top Stores by Daily Sales",
		"Monthly Store Growth",
		"Customer Cohorts",
	} {
		assert.True(t, strings.Contains(body, section), section)
	}
}

func TestOpenWarehouse_ChecksSchema(t *testing.T) {
	cfg := config.WarehouseConfig{
		DSN:          filepath.Join(t.TempDir(), "empty.db"),
		QueryTimeout: 5 * time.Second,
		CheckSchema:  true,
	}
	_, err := openWarehouse(context.Background(), cfg, observability.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMA_MISSING")

	cfg.CheckSchema = false
	src, err := openWarehouse(context.Background(), cfg, observability.Discard())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", src.Driver())
	require.NoError(t, src.Close())
}
