// Package resolve orchestrates the order resolution pipeline: parse the raw
// text into candidate lines, then per line match against the catalog, resolve
// the unit price, and evaluate stock, and finally aggregate totals. Lines are
// independent of one another and are resolved on a bounded worker pool;
// results are reassembled in input order.
package resolve

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/internal/domain/pricing"
	"github.com/kervanis/order-engine/internal/match"
	"github.com/kervanis/order-engine/internal/parse"
)

// defaultWorkers bounds per-line concurrency when the caller does not
// configure it.
const defaultWorkers = 4

// Line is one fully resolved order line.
type Line struct {
	Raw         string
	Product     *catalog.Product // nil when unmatched
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Confidence  match.Confidence
	Stock       StockStatus
	PriceSource pricing.Source
	DiscountPct decimal.Decimal
	Override    bool
	PriceAlert  bool
	Suggestions []match.Suggestion
}

// Order is the engine's output: resolved lines in input order plus totals.
type Order struct {
	ID         string
	CustomerID string
	Lines      []Line
	Summary    Summary
}

// Resolver runs the pipeline. Construct with NewResolver.
type Resolver struct {
	parser  parse.Parser
	matcher *match.Matcher
	prices  *pricing.Resolver
	taxRate decimal.Decimal
	workers int
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithTaxRate overrides the default 10% tax rate.
func WithTaxRate(rate decimal.Decimal) Option {
	return func(r *Resolver) { r.taxRate = rate }
}

// WithWorkers sets the per-line concurrency limit.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewResolver wires the pipeline stages together.
func NewResolver(parser parse.Parser, matcher *match.Matcher, prices *pricing.Resolver, opts ...Option) *Resolver {
	r := &Resolver{
		parser:  parser,
		matcher: matcher,
		prices:  prices,
		taxRate: DefaultTaxRate,
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns raw order text into a priced, stock-checked order against the
// given catalog and price-history snapshots. Both snapshots are read-only for
// the duration of the call. The only returned errors are programmer errors
// (nil snapshot) and context cancellation; malformed user text never fails.
func (r *Resolver) Resolve(ctx context.Context, customerID, text string, snap *catalog.Snapshot, history *pricing.History) (*Order, error) {
	if snap == nil {
		return nil, errors.New("catalog snapshot is required")
	}

	candidates, err := r.parser.Parse(ctx, text)
	if err != nil {
		// Parsers fall back internally; an error here means the context died.
		return nil, errors.Wrap(err, "parse order text")
	}

	lines := make([]Line, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, cand := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines[i] = r.resolveLine(ctx, cand, snap, history)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Lines:      lines,
		Summary:    Aggregate(lines, r.taxRate),
	}, nil
}

// resolveLine runs matching, pricing, and stock evaluation for one candidate line.
func (r *Resolver) resolveLine(ctx context.Context, cand parse.CandidateLine, snap *catalog.Snapshot, history *pricing.History) Line {
	res := r.matcher.Match(ctx, match.Query{
		Fragment:   cand.Name,
		Variations: cand.Variations,
	}, snap)

	quote := r.prices.Resolve(res.Product, history, cand.PriceHint)

	line := Line{
		Raw:         cand.Raw,
		Product:     res.Product,
		Quantity:    cand.Quantity,
		Unit:        cand.Unit,
		UnitPrice:   quote.UnitPrice,
		Confidence:  res.Confidence,
		Stock:       StockStatusOf(res.Product, cand.Quantity),
		PriceSource: quote.Source,
		DiscountPct: quote.DiscountPct,
		Override:    quote.Override,
		PriceAlert:  quote.Alert,
		Suggestions: res.Suggestions,
	}

	// An unmatched line without a typed price has nothing to bill: it
	// contributes zero to the subtotal even though the unit price is floored.
	if res.Product == nil && cand.PriceHint == nil {
		line.Total = decimal.Zero
	} else {
		line.Total = cand.Quantity.Mul(quote.UnitPrice).Round(2)
	}
	return line
}
