package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a sellable catalog item. Instances are immutable for
// the duration of one resolution pass.
type Product struct {
	ID           string
	Name         string
	SKU          string
	Barcode      string
	RegularPrice decimal.Decimal
	OnHand       int
	Unit         string
	Category     string
	Tobacco      bool
}

// Snapshot is a read-only view of the catalog taken at the start of a
// resolution pass. Products are pinned in ascending ID order so matching is
// reproducible regardless of how the caller assembled the list.
type Snapshot struct {
	products []Product
	lowered  []string // pre-lowercased names, same index as products
	byID     map[string]int
}

// NewSnapshot copies and sorts the given products by ID.
func NewSnapshot(products []Product) *Snapshot {
	sorted := make([]Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s := &Snapshot{
		products: sorted,
		lowered:  make([]string, len(sorted)),
		byID:     make(map[string]int, len(sorted)),
	}
	for i, p := range sorted {
		s.lowered[i] = strings.ToLower(p.Name)
		s.byID[p.ID] = i
	}
	return s
}

// Products returns the snapshot's products in pinned order. Callers must not
// mutate the returned slice.
func (s *Snapshot) Products() []Product {
	return s.products
}

// LoweredName returns the pre-lowercased name of the product at index i.
func (s *Snapshot) LoweredName(i int) string {
	return s.lowered[i]
}

// ByID returns the product with the given ID, or nil.
func (s *Snapshot) ByID(id string) *Product {
	i, ok := s.byID[id]
	if !ok {
		return nil
	}
	return &s.products[i]
}

// Len returns the number of products in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.products)
}

// Repository defines read operations for the product catalog.
type Repository interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	// ByID loads a single product. Returns ErrNotFound when no product has
	// the given ID.
	ByID(ctx context.Context, id string) (*Product, error)
}
