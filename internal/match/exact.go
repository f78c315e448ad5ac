package match

import (
	"context"
	"strings"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

// Exact matches a fragment by case-insensitive equality or bidirectional
// substring containment against product name, SKU, or barcode.
type Exact struct{}

var _ Strategy = Exact{}

// Name implements Strategy.
func (Exact) Name() string { return "exact" }

// Match implements Strategy. Confidence is high on a hit.
func (Exact) Match(_ context.Context, q Query, snap *catalog.Snapshot) (Result, bool, error) {
	if p := findExact(q.Fragment, snap); p != nil {
		return Result{Product: p, Confidence: ConfidenceHigh}, true, nil
	}
	return Result{}, false, nil
}

// findExact returns the first product whose name, SKU, or barcode contains
// (or is contained by) the fragment. Snapshot order decides ties.
func findExact(fragment string, snap *catalog.Snapshot) *catalog.Product {
	needle := strings.ToLower(strings.TrimSpace(fragment))
	if needle == "" {
		return nil
	}

	products := snap.Products()
	for i := range products {
		p := &products[i]
		if containsEither(needle, snap.LoweredName(i)) ||
			containsEither(needle, strings.ToLower(p.SKU)) ||
			containsEither(needle, strings.ToLower(p.Barcode)) {
			return p
		}
	}
	return nil
}

// containsEither reports whether either string contains the other. Empty
// fields never match.
func containsEither(needle, field string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(field, needle) || strings.Contains(needle, field)
}

// Variations re-runs the exact strategy against each parser-supplied name
// variation, in order. The first hit wins with medium confidence.
type Variations struct{}

var _ Strategy = Variations{}

// Name implements Strategy.
func (Variations) Name() string { return "variations" }

// Match implements Strategy.
func (Variations) Match(_ context.Context, q Query, snap *catalog.Snapshot) (Result, bool, error) {
	for _, v := range q.Variations {
		if p := findExact(v, snap); p != nil {
			return Result{Product: p, Confidence: ConfidenceMedium}, true, nil
		}
	}
	return Result{}, false, nil
}
