// Package textnorm produces the normalized word forms used as concordance
// grouping keys.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer folds case and, optionally, combining marks.
// The zero value folds case only.
type Normalizer struct {
	StripMarks bool
}

// Default folds case and strips diacritics.
var Default = Normalizer{StripMarks: true}

// Normalize returns the grouping form of text. Surrounding whitespace is
// dropped and the result is NFC.
func (n Normalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFC.String(text))
	if !n.StripMarks {
		return folded
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, folded)
	if err != nil {
		return folded
	}
	return out
}

// Normalize uses Default.
func Normalize(text string) string {
	return Default.Normalize(text)
}

// IsPunctuation reports whether text consists only of punctuation and
// whitespace, e.g. a detached punctuation token in a target corpus.
func IsPunctuation(text string) bool {
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
