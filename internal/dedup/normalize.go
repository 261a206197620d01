package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeURL lower-cases a URL and drops its query, fragment and trailing
// slashes so that tracking parameters do not hide a re-scraped record.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// NormalizeText folds s for fuzzy comparison: lower case, no diacritics,
// punctuation turned into spaces, runs of whitespace collapsed.
func NormalizeText(s string) string {
	folded, _, err := transform.String(foldDiacritics(), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// A transform.Transformer is stateful, so each call builds its own chain.
func foldDiacritics() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
