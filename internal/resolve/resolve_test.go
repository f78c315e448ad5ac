package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/internal/domain/pricing"
	"github.com/kervanis/order-engine/internal/match"
	"github.com/kervanis/order-engine/internal/parse"
)

func newTestResolver(opts ...Option) *Resolver {
	return NewResolver(parse.Local{}, match.New(nil, 0), pricing.NewResolver(), opts...)
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{ID: "p1", Name: "Watermelon Adalya", RegularPrice: d("22"), OnHand: 40, Unit: "case"},
		{ID: "p2", Name: "Double Apple Al Fakher", RegularPrice: d("24.00"), OnHand: 3, Unit: "box"},
		{ID: "p3", Name: "Coconut Charcoal", RegularPrice: d("8.50"), OnHand: 0, Unit: "pack"},
	})
}

// Scenario: explicit price hint overrides both the customer and regular price.
func TestResolvePriceHintOverride(t *testing.T) {
	r := newTestResolver()

	order, err := r.Resolve(context.Background(), "c1", "10 cases of watermelon adalya $250", testSnapshot(), nil)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)

	line := order.Lines[0]
	require.True(t, line.Product != nil)
	assert.Equal(t, "p1", line.Product.ID)
	assert.True(t, line.Quantity.Equal(d("10")))
	assert.Equal(t, "case", line.Unit)
	assert.True(t, line.UnitPrice.Equal(d("250")))
	assert.True(t, line.Override)
	assert.True(t, line.Total.Equal(d("2500")), "got %s", line.Total)
	assert.Equal(t, match.ConfidenceHigh, line.Confidence)
	assert.Equal(t, StockIn, line.Stock)
}

// Scenario: a valid negotiated price wins over the regular price and feeds
// the savings figure.
func TestResolveCustomerPrice(t *testing.T) {
	r := newTestResolver()
	history := pricing.NewHistory("c1", []pricing.Record{
		{CustomerID: "c1", ProductID: "p2", LastPrice: d("18.00")},
	})

	order, err := r.Resolve(context.Background(), "c1", "5 boxes double apple al fakher", testSnapshot(), history)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)

	line := order.Lines[0]
	assert.True(t, line.UnitPrice.Equal(d("18.00")))
	assert.Equal(t, pricing.SourceCustomer, line.PriceSource)
	assert.True(t, line.DiscountPct.Equal(d("25")), "got %s", line.DiscountPct)
	assert.True(t, order.Summary.Savings.Equal(d("30.00")), "got %s", order.Summary.Savings)
	assert.Equal(t, StockLow, line.Stock, "requested 5 with 3 on hand")
}

// Scenario: an unmatched fragment stays in the output with suggestions and a
// not_found stock status.
func TestResolveUnmatchedFragment(t *testing.T) {
	r := newTestResolver()

	order, err := r.Resolve(context.Background(), "c1", "xyz-unknown-item 3 pieces", testSnapshot(), nil)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)

	line := order.Lines[0]
	assert.Nil(t, line.Product)
	assert.Equal(t, match.ConfidenceNone, line.Confidence)
	assert.Equal(t, StockNotFound, line.Stock)
	assert.True(t, line.Total.IsZero(), "no hint and no match: nothing to bill")
	assert.True(t, line.Quantity.Equal(d("3")))
}

func TestResolveLineTotalsInvariant(t *testing.T) {
	r := newTestResolver()

	order, err := r.Resolve(context.Background(), "c1",
		"2 cases watermelon adalya; 1 pack coconut charcoal; 3 boxes double apple al fakher",
		testSnapshot(), nil)
	require.NoError(t, err)
	require.Len(t, order.Lines, 3)

	for _, line := range order.Lines {
		require.NotNil(t, line.Product)
		want := line.Quantity.Mul(line.UnitPrice).Round(2)
		assert.True(t, line.Total.Equal(want), "line %q: total %s want %s", line.Raw, line.Total, want)
	}
}

func TestResolvePreservesInputOrder(t *testing.T) {
	r := newTestResolver(WithWorkers(8))

	order, err := r.Resolve(context.Background(), "c1",
		"coconut charcoal, watermelon adalya, double apple al fakher, coconut charcoal",
		testSnapshot(), nil)
	require.NoError(t, err)
	require.Len(t, order.Lines, 4)

	assert.Equal(t, "p3", order.Lines[0].Product.ID)
	assert.Equal(t, "p1", order.Lines[1].Product.ID)
	assert.Equal(t, "p2", order.Lines[2].Product.ID)
	assert.Equal(t, "p3", order.Lines[3].Product.ID)
}

func TestResolveDeterministicAcrossRuns(t *testing.T) {
	r := newTestResolver()
	snap := testSnapshot()

	first, err := r.Resolve(context.Background(), "c1", "adalya watermeln case", snap, nil)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "c1", "adalya watermeln case", snap, nil)
	require.NoError(t, err)

	require.Len(t, first.Lines, 1)
	require.Len(t, second.Lines, 1)
	require.NotNil(t, first.Lines[0].Product)
	assert.Equal(t, first.Lines[0].Product.ID, second.Lines[0].Product.ID)
	assert.Equal(t, first.Lines[0].Confidence, second.Lines[0].Confidence)
}

func TestResolveOutOfStock(t *testing.T) {
	r := newTestResolver()

	order, err := r.Resolve(context.Background(), "c1", "2 packs coconut charcoal", testSnapshot(), nil)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, StockOut, order.Lines[0].Stock)
}

func TestResolveNilSnapshot(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(context.Background(), "c1", "anything", nil, nil)
	assert.Error(t, err)
}

func TestResolveCancelledContext(t *testing.T) {
	r := newTestResolver()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "c1", "2 cases watermelon adalya", testSnapshot(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveEmptyText(t *testing.T) {
	r := newTestResolver()

	order, err := r.Resolve(context.Background(), "c1", "   ", testSnapshot(), nil)
	require.NoError(t, err)
	assert.Empty(t, order.Lines)
	assert.True(t, order.Summary.Total.IsZero())
	assert.NotEmpty(t, order.ID)
}
