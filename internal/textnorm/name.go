// Package textnorm holds the string normalizers and similarity scoring shared by
// canonical identity assignment and entity resolution.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName lowercases the value, folds diacritics, collapses every run of
// characters outside [a-z0-9] into a single hyphen and trims hyphens from both ends.
func NormalizeName(raw string) string {
	folded := strings.ToLower(foldDiacritics(raw))
	if folded == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if isASCIIAlnum(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

func foldDiacritics(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, raw)
	if err != nil {
		return raw
	}
	return folded
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
