// Package parse turns free-text purchase orders into candidate line items.
//
// The local parser is regex-based and total: malformed segments degrade to a
// quantity of 1, a generic unit, and the raw trimmed text as the product-name
// fragment. It never returns an error for user input.
package parse

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultUnit is assigned when no recognized unit token is present.
const DefaultUnit = "piece"

// maxVariations bounds the per-fragment name variation list so matcher cost
// stays bounded.
const maxVariations = 10

// CandidateLine is an unresolved fragment of order text with the quantity,
// unit, and name guessed from it.
type CandidateLine struct {
	Raw        string
	Quantity   decimal.Decimal
	Unit       string
	Name       string
	PriceHint  *decimal.Decimal
	Variations []string
}

// Parser extracts candidate lines from raw order text.
type Parser interface {
	Parse(ctx context.Context, raw string) ([]CandidateLine, error)
}

// unitVocab maps recognized unit tokens (including plurals) to their
// canonical form.
var unitVocab = map[string]string{
	"case": "case", "cases": "case",
	"box": "box", "boxes": "box",
	"pack": "pack", "packs": "pack",
	"piece": "piece", "pieces": "piece", "pcs": "piece", "pc": "piece",
	"carton": "carton", "cartons": "carton",
	"bottle": "bottle", "bottles": "bottle",
	"kg": "kg", "kgs": "kg",
	"g": "g", "gr": "g",
	"l": "l", "lt": "l",
	"ml": "ml",
}

// brandAliases expands shorthand brand tokens to their full form for
// variation generation.
var brandAliases = map[string]string{
	"af":       "al fakher",
	"alfakher": "al fakher",
	"fakher":   "al fakher",
	"ds":       "dark side",
	"darkside": "dark side",
	"mb":       "musthave",
	"coco":     "cocourth",
	"starbuzz": "star buzz",
	"fumari":   "fumari tobacco",
}

var (
	segmentSplit = regexp.MustCompile(`[\n,;]+`)

	// Trailing price: "$250", "$12.50", "at 18", "@ 18.5".
	priceTail = regexp.MustCompile(`(?i)(?:\$\s*|\b(?:at)\s+\$?\s*|@\s*\$?\s*)(\d+(?:[.,]\d+)?)\s*$`)

	// Leading quantity with optional unit token: "10 cases of ...", "2.5 kg ...".
	leadQty = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(?:([a-z]+)\.?\s+)?(?:of\s+)?(.*)$`)

	// Trailing quantity+unit: "... 3 pieces".
	tailQty = regexp.MustCompile(`(?i)^(.*\S)\s+(\d+(?:[.,]\d+)?)\s*([a-z]+)\.?$`)

	spaces = regexp.MustCompile(`\s+`)
)

// Local is the regex-based parser. The zero value is ready to use.
type Local struct{}

var _ Parser = Local{}

// Parse splits raw order text on line, comma, and semicolon delimiters and
// extracts a candidate line from each non-empty segment. The error is always
// nil; it exists to satisfy Parser for fallback chaining.
func (Local) Parse(_ context.Context, raw string) ([]CandidateLine, error) {
	var lines []CandidateLine
	for _, seg := range segmentSplit.Split(raw, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if line, ok := parseSegment(seg); ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// parseSegment extracts one candidate line. It reports false when the segment
// yields no usable product-name fragment.
func parseSegment(seg string) (CandidateLine, bool) {
	line := CandidateLine{
		Raw:      seg,
		Quantity: decimal.NewFromInt(1),
		Unit:     DefaultUnit,
	}

	rest := seg

	// Strip a trailing price hint first so it never leaks into the name.
	if m := priceTail.FindStringSubmatch(rest); m != nil {
		if p, err := decimal.NewFromString(normalizeNumber(m[1])); err == nil && p.IsPositive() {
			line.PriceHint = &p
		}
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}

	rest, line.Quantity, line.Unit = extractQuantity(rest)

	line.Name = spaces.ReplaceAllString(strings.TrimSpace(rest), " ")
	if line.Name == "" {
		return CandidateLine{}, false
	}
	line.Variations = nameVariations(line.Name)
	return line, true
}

// extractQuantity pulls a quantity and unit off the front (preferred) or the
// back of the segment. Unrecognized or non-positive quantities degrade to 1.
func extractQuantity(seg string) (rest string, qty decimal.Decimal, unit string) {
	qty = decimal.NewFromInt(1)
	unit = DefaultUnit

	if m := leadQty.FindStringSubmatch(seg); m != nil && strings.TrimSpace(m[3]) != "" {
		if q, err := decimal.NewFromString(normalizeNumber(m[1])); err == nil && q.IsPositive() {
			qty = q
		}
		token := strings.ToLower(m[2])
		if canonical, ok := unitVocab[token]; ok {
			return m[3], qty, canonical
		}
		// No recognized unit after the number: the token is part of the name.
		if token != "" {
			return m[2] + " " + m[3], qty, unit
		}
		return m[3], qty, unit
	}

	if m := tailQty.FindStringSubmatch(seg); m != nil {
		if canonical, ok := unitVocab[strings.ToLower(m[3])]; ok {
			if q, err := decimal.NewFromString(normalizeNumber(m[2])); err == nil && q.IsPositive() {
				return m[1], q, canonical
			}
		}
	}

	return seg, qty, unit
}

// nameVariations expands known brand tokens to their full form to widen
// matching. The list is capped at maxVariations.
func nameVariations(name string) []string {
	words := strings.Fields(strings.ToLower(name))
	var variations []string
	seen := map[string]struct{}{strings.ToLower(name): {}}

	add := func(v string) {
		if len(variations) >= maxVariations {
			return
		}
		if _, ok := seen[v]; ok || v == "" {
			return
		}
		seen[v] = struct{}{}
		variations = append(variations, v)
	}

	for i, w := range words {
		full, ok := brandAliases[w]
		if !ok {
			continue
		}
		replaced := make([]string, len(words))
		copy(replaced, words)
		replaced[i] = full
		add(strings.Join(replaced, " "))

		// Variant with the brand token dropped entirely.
		dropped := make([]string, 0, len(words)-1)
		dropped = append(dropped, words[:i]...)
		dropped = append(dropped, words[i+1:]...)
		add(strings.Join(dropped, " "))
	}
	return variations
}

// normalizeNumber converts a decimal comma to a dot.
func normalizeNumber(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}
