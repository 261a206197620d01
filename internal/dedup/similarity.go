package dedup

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity is a normalized edit-distance ratio in [0,1] between two texts
// after NormalizeText. Either side empty yields 0.
func Similarity(a, b string) float64 {
	return similarity(NormalizeText(a), NormalizeText(b))
}

// similarity expects already-normalized input.
func similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(la, lb)
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
