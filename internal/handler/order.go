package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kervanis/order-engine/internal/resolve"
)

// resolveRequest is the POST /api/orders/resolve body.
type resolveRequest struct {
	CustomerID string `json:"customer_id"`
	Text       string `json:"text"`
}

// resolveOrder loads the catalog and price-history snapshots for the
// customer, runs the pipeline, and returns the resolved lines plus summary.
func (h *Handler) resolveOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	snap, err := h.catalog.Snapshot(ctx)
	if err != nil {
		zctx.From(ctx).Error("load catalog snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	history, err := h.prices.HistoryFor(ctx, req.CustomerID)
	if err != nil {
		zctx.From(ctx).Error("load price history",
			zap.String("customer_id", req.CustomerID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "price history unavailable")
		return
	}

	order, err := h.resolver.Resolve(ctx, req.CustomerID, req.Text, snap, history)
	if err != nil {
		zctx.From(ctx).Error("resolve order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	e := &jx.Encoder{}
	encodeOrder(e, order)
	writeJSON(w, http.StatusOK, e)
}

func encodeOrder(e *jx.Encoder, order *resolve.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(order.ID)
	e.FieldStart("customer_id")
	e.Str(order.CustomerID)

	e.FieldStart("lines")
	e.ArrStart()
	for _, line := range order.Lines {
		encodeLine(e, line)
	}
	e.ArrEnd()

	e.FieldStart("summary")
	e.ObjStart()
	encodeMoney(e, "subtotal", order.Summary.Subtotal)
	encodeMoney(e, "tax", order.Summary.Tax)
	encodeMoney(e, "total", order.Summary.Total)
	encodeMoney(e, "savings", order.Summary.Savings)
	e.ObjEnd()

	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, line resolve.Line) {
	e.ObjStart()
	e.FieldStart("raw")
	e.Str(line.Raw)

	if line.Product != nil {
		e.FieldStart("product_id")
		e.Str(line.Product.ID)
		e.FieldStart("product_name")
		e.Str(line.Product.Name)
	} else {
		e.FieldStart("product_id")
		e.Null()
	}

	e.FieldStart("quantity")
	e.RawStr(line.Quantity.String())
	e.FieldStart("unit")
	e.Str(line.Unit)
	encodeMoney(e, "unit_price", line.UnitPrice)
	encodeMoney(e, "total", line.Total)
	e.FieldStart("confidence")
	e.Str(line.Confidence.String())
	e.FieldStart("stock_status")
	e.Str(string(line.Stock))
	e.FieldStart("price_source")
	e.Str(string(line.PriceSource))
	e.FieldStart("discount_pct")
	e.RawStr(line.DiscountPct.Round(2).String())
	if line.Override {
		e.FieldStart("price_override")
		e.Bool(true)
	}
	if line.PriceAlert {
		e.FieldStart("price_alert")
		e.Bool(true)
	}

	if len(line.Suggestions) > 0 {
		e.FieldStart("suggestions")
		e.ArrStart()
		for _, s := range line.Suggestions {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Str(s.Product.ID)
			e.FieldStart("product_name")
			e.Str(s.Product.Name)
			e.FieldStart("score")
			e.Int(s.Score)
			e.ObjEnd()
		}
		e.ArrEnd()
	}

	e.ObjEnd()
}

// encodeMoney writes a decimal amount as a raw JSON number with two decimal
// places, avoiding float drift.
func encodeMoney(e *jx.Encoder, field string, amount decimal.Decimal) {
	e.FieldStart(field)
	e.RawStr(amount.StringFixed(2))
}
