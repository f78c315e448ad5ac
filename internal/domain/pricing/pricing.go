// Package pricing resolves the unit price for a customer/product pair from
// the customer's negotiated price history, falling back to the regular
// catalog price, and computes the derived discount metrics.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

// Source identifies where a resolved unit price came from.
type Source string

const (
	// SourceCustomer means the price came from the customer's negotiated history.
	SourceCustomer Source = "customer"
	// SourceRegular means the regular catalog price (or a manual override) was used.
	SourceRegular Source = "regular"
)

// MinUnitPrice is the floor applied to every resolved unit price. Prices are
// never zero or negative.
var MinUnitPrice = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// alertRatio is the relative customer/regular difference above which a quote
// is flagged as a possible stale or mistyped negotiated price.
var alertRatio = decimal.RequireFromString("0.5")

// Record is one customer-product entry in the negotiated price history.
type Record struct {
	CustomerID    string
	ProductID     string
	LastPrice     decimal.Decimal
	OriginalPrice decimal.Decimal
	ValidUntil    *time.Time
	Locked        bool
	TimesOrdered  int
	TotalQuantity decimal.Decimal
	UpdatedAt     time.Time
}

// ValidAt reports whether the record may be used at the given time. A locked
// record never expires; an unlocked record without ValidUntil is open-ended.
func (r *Record) ValidAt(now time.Time) bool {
	if r.Locked {
		return true
	}
	if r.ValidUntil == nil {
		return true
	}
	return now.Before(*r.ValidUntil)
}

// History is the read-only price-history snapshot for one customer, taken at
// the start of a resolution pass.
type History struct {
	customerID string
	byProduct  map[string]*Record
}

// NewHistory builds a History for the given customer from its records.
// Records for other customers are skipped.
func NewHistory(customerID string, records []Record) *History {
	h := &History{
		customerID: customerID,
		byProduct:  make(map[string]*Record, len(records)),
	}
	for i := range records {
		r := &records[i]
		if r.CustomerID != customerID {
			continue
		}
		h.byProduct[r.ProductID] = r
	}
	return h
}

// CustomerID returns the customer this history belongs to.
func (h *History) CustomerID() string {
	return h.customerID
}

// Lookup returns the record for the given product, or nil.
func (h *History) Lookup(productID string) *Record {
	if h == nil {
		return nil
	}
	return h.byProduct[productID]
}

// Repository loads and updates customer price history.
type Repository interface {
	HistoryFor(ctx context.Context, customerID string) (*History, error)
	// RecordNegotiated upserts a negotiated price after an order is
	// confirmed, bumping the order counters.
	RecordNegotiated(ctx context.Context, rec Record) error
}

// Quote is the outcome of resolving a unit price for one order line.
type Quote struct {
	UnitPrice   decimal.Decimal
	Source      Source
	DiscountPct decimal.Decimal
	// Override is set when the user typed an explicit price that bypassed
	// both the history and the regular price.
	Override bool
	// Alert flags a customer price deviating more than 50% from the regular
	// price. Advisory only.
	Alert bool
}

// Resolver picks unit prices. The now function is injectable for tests.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a Resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// Resolve picks the unit price for the given product. Precedence: explicit
// hint, then a valid customer record, then the regular catalog price. The
// product may be nil for unmatched lines; the hint (or the floor) is used.
func (r *Resolver) Resolve(product *catalog.Product, history *History, hint *decimal.Decimal) Quote {
	regular := decimal.Zero
	if product != nil {
		regular = product.RegularPrice
	}

	if hint != nil {
		price := clampFloor(*hint)
		return Quote{
			UnitPrice:   price,
			Source:      SourceRegular,
			DiscountPct: discountPct(regular, price),
			Override:    true,
		}
	}

	if product == nil {
		return Quote{UnitPrice: MinUnitPrice, Source: SourceRegular}
	}

	if rec := history.Lookup(product.ID); rec != nil && rec.ValidAt(r.now()) {
		price := clampFloor(rec.LastPrice)
		return Quote{
			UnitPrice:   price,
			Source:      SourceCustomer,
			DiscountPct: discountPct(regular, price),
			Alert:       priceAlert(regular, price),
		}
	}

	return Quote{
		UnitPrice: clampFloor(regular),
		Source:    SourceRegular,
	}
}

// discountPct returns (regular - resolved) / regular * 100 clamped to
// [0, 100], or zero when the regular price is not positive.
func discountPct(regular, resolved decimal.Decimal) decimal.Decimal {
	if !regular.IsPositive() {
		return decimal.Zero
	}
	pct := regular.Sub(resolved).Div(regular).Mul(hundred)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// priceAlert reports whether the customer price deviates from the regular
// price by more than the alert ratio in either direction.
func priceAlert(regular, customer decimal.Decimal) bool {
	if !regular.IsPositive() {
		return false
	}
	diff := regular.Sub(customer).Abs()
	return diff.Div(regular).GreaterThan(alertRatio)
}

func clampFloor(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(MinUnitPrice) {
		return MinUnitPrice
	}
	return d
}
