package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

// listProducts returns the current catalog snapshot.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.catalog.Snapshot(ctx)
	if err != nil {
		zctx.From(ctx).Error("load catalog snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for _, p := range snap.Products() {
		encodeProduct(e, &p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// getProduct returns a single product by ID.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	p, err := h.catalog.ByID(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		zctx.From(ctx).Error("load product", zap.String("product_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	e := &jx.Encoder{}
	encodeProduct(e, p)
	writeJSON(w, http.StatusOK, e)
}

func encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("barcode")
	e.Str(p.Barcode)
	encodeMoney(e, "regular_price", p.RegularPrice)
	e.FieldStart("on_hand")
	e.Int(p.OnHand)
	e.FieldStart("unit")
	e.Str(p.Unit)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("is_tobacco")
	e.Bool(p.Tobacco)
	e.ObjEnd()
}
