package match

import (
	"context"
	"sort"
	"strings"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/pkg/textscore"
)

// Scoring weights for the fuzzy strategy.
const (
	substringBonus  = 10
	sharedWordBonus = 3
	keywordBonus    = 5
	editDistanceMax = 5
	minWordLen      = 2

	// maxSuggestions caps the alternative candidates attached to a result.
	maxSuggestions = 3
)

// domainKeywords are tokens specific to the distributor's assortment; a
// keyword shared between fragment and product name is a strong signal even
// when the surrounding words differ.
var domainKeywords = []string{
	"adalya", "fakher", "fumari", "hookah", "shisha", "nargile",
	"tobacco", "charcoal", "coal", "hose", "bowl", "foil",
	"apple", "grape", "mint", "lemon", "watermelon", "peach",
}

// Fuzzy scores every catalog product against the fragment and accepts the
// top candidate when its score is positive. Ties break by snapshot order,
// which is pinned by product ID, so results are deterministic.
type Fuzzy struct{}

var _ Strategy = Fuzzy{}

// Name implements Strategy.
func (Fuzzy) Name() string { return "fuzzy" }

// Match implements Strategy. Confidence is low on a hit; the next ranked
// candidates become suggestions.
func (Fuzzy) Match(_ context.Context, q Query, snap *catalog.Snapshot) (Result, bool, error) {
	ranked := scoreAll(q.Fragment, snap)
	if len(ranked) == 0 || ranked[0].Score <= 0 {
		return Result{}, false, nil
	}
	return Result{
		Product:     ranked[0].Product,
		Confidence:  ConfidenceLow,
		Suggestions: topSuggestions(ranked, 1, maxSuggestions),
	}, true, nil
}

// scoreAll ranks every snapshot product by fuzzy score, descending. The sort
// is stable over snapshot order: the first-seen product wins a tie.
func scoreAll(fragment string, snap *catalog.Snapshot) []Suggestion {
	needle := strings.ToLower(strings.TrimSpace(fragment))
	if needle == "" {
		return nil
	}

	products := snap.Products()
	ranked := make([]Suggestion, len(products))
	for i := range products {
		ranked[i] = Suggestion{
			Product: &products[i],
			Score:   fuzzyScore(needle, snap.LoweredName(i)),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// fuzzyScore combines substring containment, shared words, edit distance,
// and domain keyword overlap. Both inputs must already be lowercase.
func fuzzyScore(fragment, name string) int {
	if name == "" {
		return 0
	}

	score := 0
	if strings.Contains(name, fragment) || strings.Contains(fragment, name) {
		score += substringBonus
	}

	score += sharedWordBonus * textscore.SharedWords(fragment, name, minWordLen)

	if d := textscore.Levenshtein(fragment, name); d < editDistanceMax {
		score += (editDistanceMax - d) * 2
	}

	for _, kw := range domainKeywords {
		if strings.Contains(fragment, kw) && strings.Contains(name, kw) {
			score += keywordBonus
		}
	}
	return score
}

// topSuggestions returns up to max positive-score entries from ranked,
// starting at offset.
func topSuggestions(ranked []Suggestion, offset, max int) []Suggestion {
	var out []Suggestion
	for _, s := range ranked[min(offset, len(ranked)):] {
		if s.Score <= 0 || len(out) >= max {
			break
		}
		out = append(out, s)
	}
	return out
}
