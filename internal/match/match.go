// Package match resolves a product-name fragment to at most one catalog
// product through an ordered chain of strategies: exact/alias containment,
// parser-supplied name variations, fuzzy scoring, and optional
// embedding-based semantic ranking. The chain short-circuits on the first
// strategy that produces a hit.
package match

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

// Confidence ranks how certain a match is. Values are totally ordered:
// ConfidenceHigh > ConfidenceMedium > ConfidenceLow > ConfidenceNone.
type Confidence uint8

const (
	// ConfidenceNone means no strategy produced a match.
	ConfidenceNone Confidence = iota
	// ConfidenceLow means the fuzzy scorer picked the product.
	ConfidenceLow
	// ConfidenceMedium means a name variation or semantic similarity matched.
	ConfidenceMedium
	// ConfidenceHigh means the fragment matched the product name, SKU, or
	// barcode directly.
	ConfidenceHigh
)

// String implements fmt.Stringer.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "no_match"
	}
}

// Query is one matching request: the cleaned fragment plus the parser's
// brand-alias variations.
type Query struct {
	Fragment   string
	Variations []string
}

// Suggestion is an alternative candidate offered when confidence is low or
// there is no match.
type Suggestion struct {
	Product *catalog.Product
	Score   int
}

// Result is the outcome of matching one fragment. Product is nil exactly
// when Confidence is ConfidenceNone; Matched reports that distinction.
type Result struct {
	Product     *catalog.Product
	Confidence  Confidence
	Suggestions []Suggestion
}

// Matched reports whether a product was found.
func (r Result) Matched() bool {
	return r.Product != nil
}

// Strategy is a single matching approach. ok reports whether the strategy
// accepted a match; an error means the strategy itself failed (e.g. an
// external service) and the chain moves on.
type Strategy interface {
	Name() string
	Match(ctx context.Context, q Query, snap *catalog.Snapshot) (res Result, ok bool, err error)
}

// Matcher runs the strategy chain in order.
type Matcher struct {
	strategies []Strategy
}

// New builds the default chain. The embedder is optional: when nil the
// semantic strategy is omitted entirely and matching degrades to the local
// strategies.
func New(embedder Embedder, semanticThreshold float64) *Matcher {
	strategies := []Strategy{
		Exact{},
		Variations{},
		Fuzzy{},
	}
	if embedder != nil {
		strategies = append(strategies, NewSemantic(embedder, semanticThreshold))
	}
	return &Matcher{strategies: strategies}
}

// NewWithStrategies builds a Matcher from an explicit chain. Used by tests
// and callers that need a custom cascade.
func NewWithStrategies(strategies ...Strategy) *Matcher {
	return &Matcher{strategies: strategies}
}

// Match runs the chain and returns the first accepted result. A strategy
// error is logged and skipped; it never fails the whole match. When no
// strategy accepts, the result carries ConfidenceNone with fuzzy suggestions
// for user guidance.
func (m *Matcher) Match(ctx context.Context, q Query, snap *catalog.Snapshot) Result {
	for _, s := range m.strategies {
		res, ok, err := s.Match(ctx, q, snap)
		if err != nil {
			zctx.From(ctx).Warn("match strategy failed",
				zap.String("strategy", s.Name()),
				zap.String("fragment", q.Fragment),
				zap.Error(err),
			)
			continue
		}
		if ok {
			return res
		}
	}

	return Result{
		Confidence:  ConfidenceNone,
		Suggestions: topSuggestions(scoreAll(q.Fragment, snap), 0, maxSuggestions),
	}
}
