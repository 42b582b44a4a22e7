package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salla-analytics/internal/config"
	"salla-analytics/internal/models"
	"salla-analytics/internal/observability"
	"salla-analytics/internal/services"
	"salla-analytics/internal/warehouse"
)

var testDefaults = config.DashboardConfig{
	TopProducts:        15,
	TopCategories:      10,
	CategoriesPerState: 5,
	TopStores:          10,
	GrowthHeatmapRows:  25,
}

func at(value string) time.Time {
	t, err := time.Parse(time.DateTime, value)
	if err != nil {
		panic(err)
	}
	return t
}

func line(order, product, seller, customer, when string, qty int64, price, shipping float64) models.OrderItem {
	return models.OrderItem{
		OrderID: order, ProductID: product, SellerID: seller, CustomerID: customer,
		PurchasedAt: at(when), Quantity: qty, ItemPrice: price, ShippingPrice: shipping,
	}
}

func newSampleSource() *warehouse.Memory {
	items := []models.OrderItem{
		line("o1", "p1", "s1", "c1", "2023-01-10 10:00:00", 2, 100, 10),
		line("o1", "p2", "s1", "c1", "2023-01-10 10:00:00", 1, 50, 5),
		line("o2", "p1", "s2", "c2", "2023-01-20 12:00:00", 1, 100, 10),
		line("o3", "p3", "s2", "c1", "2023-03-15 09:30:00", 3, 30, 0),
		line("o4", "p1", "s1", "c1", "2023-07-01 08:00:00", 1, 100, 10),
		line("o5", "p2", "s3", "c3", "2023-02-05 18:45:00", 4, 20, 2),
		line("o6", "p3", "s3", "c2", "2023-04-02 14:00:00", 1, 30, 3),
		line("o7", "p4", "s1", "c4", "2023-04-20 11:00:00", 1, 500, 0),
	}
	products := []models.Product{
		{ProductID: "p1", Category: "electronics"},
		{ProductID: "p2", Category: "toys"},
		{ProductID: "p3", Category: "books"},
		{ProductID: "p4", Category: "furniture"},
	}
	customers := []models.CustomerVersion{
		{CustomerID: "c1", State: "RJ", EffectiveFrom: at("2023-01-01 00:00:00"), EffectiveTo: at("2023-06-01 00:00:00")},
		{CustomerID: "c1", State: "SP", EffectiveFrom: at("2023-06-01 00:00:00")},
		{CustomerID: "c2", State: "MG", EffectiveFrom: at("2022-01-01 00:00:00")},
		{CustomerID: "c3", State: "SP", EffectiveFrom: at("2022-06-01 00:00:00")},
		{CustomerID: "c4", State: "RJ", EffectiveFrom: at("2022-01-01 00:00:00")},
	}
	return warehouse.NewMemory(items, products, customers)
}

func newTestAnalytics() *services.Analytics {
	return services.NewAnalytics(newSampleSource(), observability.Discard())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
