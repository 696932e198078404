package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/surge/internal/aggregator"
	"github.com/vadiminshakov/surge/internal/engine"
	"github.com/vadiminshakov/surge/internal/history"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()

	repo := engine.NewInMemoryRepository()
	hist := history.New(nil)
	eng := engine.New(repo, hist, engine.DefaultConfig(), nil)
	market := aggregator.New(repo, hist)

	return NewServer(":0", eng, market, nil, nil), eng
}

func createProduct(t *testing.T, eng *engine.Engine) string {
	t.Helper()

	p, err := eng.CreateProduct(engine.CreateParams{
		Name:                  "widget",
		BasePrice:             decimal.NewFromInt(100),
		MaxRetailPrice:        decimal.NewFromInt(150),
		PriceIncrementPercent: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	return p.ID
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.mux().ServeHTTP(rec, req)
	return rec
}

func TestListProducts(t *testing.T) {
	s, eng := newTestServer(t)
	createProduct(t, eng)

	rec := doRequest(s, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "widget", views[0]["name"])
	require.Equal(t, "100.00", views[0]["current_price"])
}

func TestGetProductNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/products/ghost", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseTriggersCrashSale(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	rec := doRequest(s, http.MethodPost, "/products/"+id+"/purchase", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "75.00", res["new_price"])
	require.Equal(t, true, res["crash_sale_triggered"])
}

func TestPurchaseUnknownProduct(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/products/ghost/purchase", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	_, err := eng.RecordPurchase(id)
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/products/"+id+"/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	require.Equal(t, "crash_sale", points[0]["event"])
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	rec := doRequest(s, http.MethodGet, "/products/"+id+"/history?limit=nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/admin/products", `{
		"name": "mug",
		"category": "kitchen",
		"base_price": "9.99",
		"max_retail_price": "19.99",
		"price_increment_percent": "10"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "mug", view["name"])
	require.Equal(t, "9.99", view["current_price"])
	require.NotEmpty(t, view["id"])
}

func TestCreateProductRejectsBadParams(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/admin/products", `{
		"name": "broken",
		"base_price": "100",
		"max_retail_price": "50"
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrashSaleBatchPartialFailure(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	rec := doRequest(s, http.MethodPost, "/admin/crash-sale",
		`{"product_ids": ["`+id+`", "ghost"], "activate": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Results []crashSaleResultView `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 2)

	require.Equal(t, id, res.Results[0].ProductID)
	require.True(t, res.Results[0].Active)
	require.Empty(t, res.Results[0].Error)

	require.Equal(t, "ghost", res.Results[1].ProductID)
	require.NotEmpty(t, res.Results[1].Error)
}

func TestCrashSaleRejectsEmptyBatch(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/admin/crash-sale", `{"product_ids": [], "activate": true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductEndpoint(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	rec := doRequest(s, http.MethodPut, "/admin/products/"+id, `{"name": "renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "renamed", view["name"])
}

func TestMarketStatsEndpoint(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	_, err := eng.RecordPurchase(id)
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/market/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.EqualValues(t, 1, stats["total_products"])
	require.EqualValues(t, 1, stats["crash_sales_active"])
	require.EqualValues(t, 1, stats["total_volume"])
	require.Equal(t, "75.00", stats["avg_current_price"])
}

func TestMarketIndexEndpoint(t *testing.T) {
	s, eng := newTestServer(t)
	id := createProduct(t, eng)

	_, err := eng.RecordPurchase(id)
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/market/index?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Index []string `json:"index"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, []string{"75.00"}, res.Index)
}
