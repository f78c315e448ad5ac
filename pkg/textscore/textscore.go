// Package textscore provides the string distance and similarity primitives
// shared by the catalog matching strategies: Levenshtein edit distance,
// word tokenization, and cosine similarity over embedding vectors.
package textscore

import (
	"math"
	"strings"
	"unicode"
)

// Levenshtein returns the classic insert/delete/substitute edit distance
// between a and b. It runs in O(len(a)*len(b)) time and O(min) space.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	// Keep the shorter string in the inner dimension.
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // delete
				curr[j-1]+1,    // insert
				prev[j-1]+cost, // substitute
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Words splits s into lowercase word tokens, treating any non-letter,
// non-digit rune as a separator.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SharedWords counts words longer than minLen appearing in both a and b.
// Each distinct word is counted once.
func SharedWords(a, b string, minLen int) int {
	set := make(map[string]struct{})
	for _, w := range Words(a) {
		if len(w) > minLen {
			set[w] = struct{}{}
		}
	}
	shared := 0
	seen := make(map[string]struct{})
	for _, w := range Words(b) {
		if len(w) <= minLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := set[w]; ok {
			shared++
		}
	}
	return shared
}

// Cosine returns the cosine similarity of two vectors. It returns 0 when the
// vectors have different lengths or either has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
