package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/internal/domain/pricing"
	"github.com/kervanis/order-engine/internal/match"
	"github.com/kervanis/order-engine/internal/parse"
	"github.com/kervanis/order-engine/internal/resolve"
)

// --- Mock implementations ---

type mockCatalogRepo struct {
	products []catalog.Product
	err      error
}

func (m *mockCatalogRepo) Snapshot(_ context.Context) (*catalog.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return catalog.NewSnapshot(m.products), nil
}

func (m *mockCatalogRepo) ByID(_ context.Context, id string) (*catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

type mockPriceRepo struct {
	records []pricing.Record
	err     error
}

func (m *mockPriceRepo) HistoryFor(_ context.Context, customerID string) (*pricing.History, error) {
	if m.err != nil {
		return nil, m.err
	}
	return pricing.NewHistory(customerID, m.records), nil
}

func (m *mockPriceRepo) RecordNegotiated(_ context.Context, _ pricing.Record) error {
	return nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestHandler(catalogRepo *mockCatalogRepo, priceRepo *mockPriceRepo) http.Handler {
	resolver := resolve.NewResolver(parse.Local{}, match.New(nil, 0), pricing.NewResolver())
	h := New(catalogRepo, priceRepo, resolver)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func defaultCatalog() *mockCatalogRepo {
	return &mockCatalogRepo{products: []catalog.Product{
		{ID: "p1", Name: "Watermelon Adalya", RegularPrice: d("22"), OnHand: 40, Unit: "case"},
		{ID: "p2", Name: "Double Apple", RegularPrice: d("24.00"), OnHand: 10, Unit: "box"},
	}}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

// --- Tests ---

func TestResolveOrderOK(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{records: []pricing.Record{
		{CustomerID: "c1", ProductID: "p2", LastPrice: d("18.00")},
	}})

	rec, body := doJSON(t, h, http.MethodPost, "/api/orders/resolve",
		`{"customer_id": "c1", "text": "5 boxes double apple"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "c1", body["customer_id"])

	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, "p2", line["product_id"])
	assert.Equal(t, "high", line["confidence"])
	assert.Equal(t, "customer", line["price_source"])
	assert.InDelta(t, 18.0, line["unit_price"], 1e-9)
	assert.InDelta(t, 90.0, line["total"], 1e-9)

	summary := body["summary"].(map[string]any)
	assert.InDelta(t, 90.0, summary["subtotal"], 1e-9)
	assert.InDelta(t, 9.0, summary["tax"], 1e-9)
	assert.InDelta(t, 99.0, summary["total"], 1e-9)
	assert.InDelta(t, 30.0, summary["savings"], 1e-9)
}

func TestResolveOrderUnmatchedLine(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{})

	rec, body := doJSON(t, h, http.MethodPost, "/api/orders/resolve",
		`{"customer_id": "c1", "text": "zzzz qqqq vvvv"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Nil(t, line["product_id"])
	assert.Equal(t, "no_match", line["confidence"])
	assert.Equal(t, "not_found", line["stock_status"])
}

func TestResolveOrderValidation(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{`},
		{name: "missing customer", body: `{"text": "2 cases mint"}`},
		{name: "missing text", body: `{"customer_id": "c1"}`},
		{name: "blank text", body: `{"customer_id": "c1", "text": "   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, h, http.MethodPost, "/api/orders/resolve", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestResolveOrderCatalogFailure(t *testing.T) {
	h := newTestHandler(&mockCatalogRepo{err: errors.New("db down")}, &mockPriceRepo{})

	rec, _ := doJSON(t, h, http.MethodPost, "/api/orders/resolve",
		`{"customer_id": "c1", "text": "2 cases mint"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResolveOrderPriceHistoryFailure(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{err: errors.New("db down")})

	rec, _ := doJSON(t, h, http.MethodPost, "/api/orders/resolve",
		`{"customer_id": "c1", "text": "2 cases mint"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListProducts(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0]["id"])
	assert.InDelta(t, 22.0, products[0]["regular_price"], 1e-9)
}

func TestGetProduct(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{})

	rec, body := doJSON(t, h, http.MethodGet, "/api/products/p2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p2", body["id"])
	assert.Equal(t, "Double Apple", body["name"])
	assert.InDelta(t, 24.0, body["regular_price"], 1e-9)
}

func TestGetProductNotFound(t *testing.T) {
	h := newTestHandler(defaultCatalog(), &mockPriceRepo{})

	rec, body := doJSON(t, h, http.MethodGet, "/api/products/nope", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", body["message"])
}
