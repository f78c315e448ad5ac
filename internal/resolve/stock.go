package resolve

import (
	"github.com/shopspring/decimal"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

// StockStatus describes whether the on-hand quantity covers a request.
type StockStatus string

const (
	// StockIn means the on-hand quantity covers the requested quantity.
	StockIn StockStatus = "in_stock"
	// StockLow means there is some stock, but less than requested.
	StockLow StockStatus = "low_stock"
	// StockOut means the product has no stock at all.
	StockOut StockStatus = "out_of_stock"
	// StockNotFound means the line has no matched product.
	StockNotFound StockStatus = "not_found"
)

// StockStatusOf is a pure function of the on-hand and requested quantities.
// A nil product yields StockNotFound.
func StockStatusOf(product *catalog.Product, requested decimal.Decimal) StockStatus {
	if product == nil {
		return StockNotFound
	}
	if product.OnHand == 0 {
		return StockOut
	}
	if decimal.NewFromInt(int64(product.OnHand)).LessThan(requested) {
		return StockLow
	}
	return StockIn
}
