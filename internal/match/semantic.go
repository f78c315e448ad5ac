package match

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/pkg/textscore"
)

// DefaultSemanticThreshold is the cosine similarity a candidate must exceed
// to be accepted by the semantic strategy.
const DefaultSemanticThreshold = 0.7

// Embedder produces embedding vectors for matching. EmbedProduct
// implementations are expected to cache vectors keyed by product identity so
// the per-product cost is paid once per name change, not per unmatched
// fragment.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedProduct(ctx context.Context, p catalog.Product) ([]float32, error)
}

// Semantic ranks catalog products by cosine similarity between the fragment
// embedding and each product-name embedding. It is the most expensive
// strategy and runs last; any failure only reduces coverage.
type Semantic struct {
	embedder  Embedder
	threshold float64
}

var _ Strategy = (*Semantic)(nil)

// NewSemantic creates the strategy. A non-positive threshold falls back to
// DefaultSemanticThreshold.
func NewSemantic(embedder Embedder, threshold float64) *Semantic {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	return &Semantic{embedder: embedder, threshold: threshold}
}

// Name implements Strategy.
func (*Semantic) Name() string { return "semantic" }

// Match implements Strategy. Confidence is medium on a hit. A fragment
// embedding failure aborts the strategy; a single product embedding failure
// only skips that product.
func (s *Semantic) Match(ctx context.Context, q Query, snap *catalog.Snapshot) (Result, bool, error) {
	frag, err := s.embedder.EmbedText(ctx, q.Fragment)
	if err != nil {
		return Result{}, false, errors.Wrap(err, "embed fragment")
	}

	var (
		best      *catalog.Product
		bestScore float64
	)
	products := snap.Products()
	for i := range products {
		if err := ctx.Err(); err != nil {
			return Result{}, false, err
		}

		vec, err := s.embedder.EmbedProduct(ctx, products[i])
		if err != nil {
			zctx.From(ctx).Debug("product embedding failed",
				zap.String("product_id", products[i].ID),
				zap.Error(err),
			)
			continue
		}

		if sim := textscore.Cosine(frag, vec); sim > bestScore {
			bestScore = sim
			best = &products[i]
		}
	}

	if best == nil || bestScore <= s.threshold {
		return Result{}, false, nil
	}
	return Result{Product: best, Confidence: ConfidenceMedium}, true, nil
}
