// Package handler exposes the resolution engine over HTTP. The engine is a
// library; this layer only decodes requests, loads the snapshots, and encodes
// results.
package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/internal/domain/pricing"
	"github.com/kervanis/order-engine/internal/resolve"
)

// Handler serves the order resolution API.
type Handler struct {
	catalog  catalog.Repository
	prices   pricing.Repository
	resolver *resolve.Resolver
}

// New constructs a Handler with the required dependencies.
func New(catalogRepo catalog.Repository, priceRepo pricing.Repository, resolver *resolve.Resolver) *Handler {
	return &Handler{
		catalog:  catalogRepo,
		prices:   priceRepo,
		resolver: resolver,
	}
}

// Register mounts the API routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders/resolve", h.resolveOrder)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
}

// writeJSON writes an encoded jx payload with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {code, message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}
