//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 9 {
		t.Fatalf("expected 9 products, got %d", len(products))
	}

	for _, p := range products {
		if p.ID == "" {
			t.Error("product with empty id")
		}
		if p.Name == "" {
			t.Errorf("product %s has empty name", p.ID)
		}
		if p.SKU == "" {
			t.Errorf("product %s has empty sku", p.ID)
		}
		if p.RegularPrice <= 0 {
			t.Errorf("product %s has non-positive price %v", p.ID, p.RegularPrice)
		}
		if p.Unit == "" {
			t.Errorf("product %s has empty unit", p.ID)
		}
	}
}

func TestListProducts_KnownProduct(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	products := decodeJSON[[]productResponse](t, resp)

	var found *productResponse
	for i := range products {
		if products[i].ID == "P-1001" {
			found = &products[i]
			break
		}
	}
	if found == nil {
		t.Fatal("product P-1001 not in listing")
	}

	if found.Name != "Adalya Love 66 Tobacco 1kg" {
		t.Errorf("name: got %q", found.Name)
	}
	if found.RegularPrice != 285 {
		t.Errorf("regular_price: got %v, want 285", found.RegularPrice)
	}
	if !found.IsTobacco {
		t.Error("P-1001 should be flagged as tobacco")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/P-2001")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "CocoBrico Coconut Charcoal" {
		t.Errorf("name: got %q", p.Name)
	}
	if p.RegularPrice != 68.5 {
		t.Errorf("regular_price: got %v, want 68.5", p.RegularPrice)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/P-9999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d", body.Code)
	}
}

func TestListProducts_MethodNotAllowed(t *testing.T) {
	resp := doPost(t, "/api/products", struct{}{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
